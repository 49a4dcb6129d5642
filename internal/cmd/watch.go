package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pricelens/pricelens/internal/annotate"
	"github.com/pricelens/pricelens/internal/config"
	"github.com/pricelens/pricelens/internal/dom"
	"github.com/pricelens/pricelens/internal/filewatch"
	"github.com/pricelens/pricelens/internal/logging"
	"github.com/pricelens/pricelens/internal/report"
	"github.com/pricelens/pricelens/internal/scanner"
	"github.com/pricelens/pricelens/internal/tui"
	"github.com/pricelens/pricelens/internal/tui/msg"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Watch documents and reconvert them as they change",
	Long: `Watch documents on disk and reconvert prices as they change.

Each watched document gets its own observed tree: saves are grafted in
as mutations, classified, and converted in debounced batch passes, so a
burst of rapid saves costs one pass. Directories are watched recursively
for documents matching the configured extensions. With no arguments the
current directory is watched.

Annotated copies are only written when --out-dir is set; the output
directory must sit outside every watched tree.

Examples:
  # Watch the current directory, report passes as they happen
  pricelens watch

  # Watch a site checkout and write annotated copies
  pricelens watch -o /tmp/converted ./site

  # Watch with the live dashboard
  pricelens watch -i ./site`,
	RunE: runWatch,
}

var (
	watchOutDir      string
	watchInteractive bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutDir, "out-dir", "o", "", "Write annotated copies into this directory after each pass")
	watchCmd.Flags().BoolVarP(&watchInteractive, "interactive", "i", false, "Show the live dashboard")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	cfg := config.Get()
	log, err := openLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Close()

	// Flags override config.
	outDir := watchOutDir
	if !cmd.Flags().Changed("out-dir") {
		outDir = cfg.Watch.OutDir
	}
	interactive := cfg.Watch.Interactive
	if cmd.Flags().Changed("interactive") {
		interactive = watchInteractive
	}

	if err := validateOutDir(outDir, args); err != nil {
		return err
	}

	annotator, err := annotate.New(annotate.Config{
		Pattern:      cfg.Rewrite.Pattern,
		Template:     cfg.Rewrite.Template,
		Marker:       cfg.Scan.MarkerClass,
		KeepOriginal: cfg.Rewrite.KeepOriginal,
		Logger:       log.WithComponent("annotate"),
	})
	if err != nil {
		return fmt.Errorf("invalid rewrite configuration: %w", err)
	}

	watcher, err := filewatch.New(filewatch.Config{
		Extensions:     cfg.Watch.Extensions,
		IgnorePatterns: cfg.Watch.IgnorePatterns,
		Settle:         cfg.Watch.SettleInterval(),
		Logger:         log.WithComponent("filewatch"),
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, arg := range args {
		if err := watcher.Add(arg); err != nil {
			return err
		}
	}

	runner := &watchRunner{
		cfg:       cfg,
		annotator: annotator,
		log:       log.WithComponent("watch"),
		outDir:    outDir,
		sessions:  make(map[string]*watchSession),
	}
	watcher.SetChangeCallback(runner.handleChanges)

	// The initial content of every matched document flows through the
	// same graft-and-convert path as later saves.
	sweep := func() {
		files, err := collectDocuments(args, cfg.Watch.Extensions)
		if err != nil {
			runner.log.Error("initial sweep failed", "error", err)
			return
		}
		for _, f := range files {
			runner.refresh(f)
		}
	}

	if interactive {
		app := tui.New(tui.Options{
			Roots:  watcher.Roots(),
			OutDir: outDir,
			OnReady: func() {
				if err := watcher.Start(); err != nil {
					runner.sink.Failed("", err)
					return
				}
				sweep()
			},
		})
		runner.sink = tuiSink{app: app}

		if err := app.Run(); err != nil {
			return fmt.Errorf("dashboard error: %w", err)
		}
	} else {
		runner.sink = &printSink{out: cmd.OutOrStdout()}

		if err := watcher.Start(); err != nil {
			return err
		}
		sweep()

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n",
			strings.Join(watcher.Roots(), ", "))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		signal.Stop(sig)
	}

	watcher.Close()
	runner.shutdown()
	fmt.Fprint(cmd.OutOrStdout(), runner.summary().Render())
	return nil
}

// validateOutDir rejects an output directory inside a watched tree, which
// would feed every written copy back into the watcher.
func validateOutDir(outDir string, roots []string) error {
	if outDir == "" {
		return nil
	}
	outAbs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("cannot resolve out-dir: %w", err)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(rootAbs, outAbs); err == nil && !strings.HasPrefix(rel, "..") {
			return fmt.Errorf("out-dir %s is inside watched tree %s; choose a directory outside it", outDir, root)
		}
	}
	return nil
}

// watchSink receives runner events. The plain printer and the dashboard
// both implement it.
type watchSink interface {
	Changed(path string)
	Pass(path string, stats scanner.PassStats)
	Failed(path string, err error)
}

// printSink serializes its writes: passes for different documents fire
// on different debounce goroutines.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printSink) Changed(string) {}

func (p *printSink) Pass(path string, stats scanner.PassStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, report.PassLine(path, stats))
}

func (p *printSink) Failed(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if path == "" {
		fmt.Fprintf(p.out, "watch error: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "error: %s: %v\n", path, err)
}

type tuiSink struct {
	app *tui.App
}

func (t tuiSink) Changed(path string) {
	t.app.Send(msg.DocumentChangedMsg{Path: path})
}

func (t tuiSink) Pass(path string, stats scanner.PassStats) {
	t.app.Send(msg.PassMsg{Path: path, Stats: stats})
}

func (t tuiSink) Failed(path string, err error) {
	t.app.Send(msg.DocumentFailedMsg{Path: path, Err: err})
}

// watchSession holds one document's observed tree and scanner lifecycle.
// mu doubles as the observer gate: grafts and debounce-fired passes both
// hold it, so tree access is serialized.
type watchSession struct {
	mu    sync.Mutex
	path  string // display form
	doc   *dom.Document
	state *scanner.State
	stats report.DocumentStats
}

// watchRunner owns the per-document sessions of one watch invocation.
type watchRunner struct {
	cfg       *config.Config
	annotator *annotate.Annotator
	log       *logging.Logger
	outDir    string
	sink      watchSink

	mu       sync.Mutex
	sessions map[string]*watchSession
}

func (r *watchRunner) handleChanges(changes []filewatch.Change) {
	for _, ch := range changes {
		r.refresh(ch.Path)
	}
}

// refresh parses the document's current content and grafts it into the
// session's observed tree. The graft dispatches mutation records, which
// classify into the pending queues and arm the debounce trigger; the
// actual conversion happens in the debounced pass.
func (r *watchRunner) refresh(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	fresh, err := dom.ParseFile(abs)
	if err != nil {
		r.log.Error("reload failed", "path", abs, "error", err)
		if s := r.lookup(abs); s != nil {
			s.mu.Lock()
			s.stats.Err = err
			s.mu.Unlock()
			r.sink.Failed(s.path, err)
		} else {
			r.sink.Failed(displayPath(abs), err)
		}
		return
	}

	s, err := r.session(abs)
	if err != nil {
		r.log.Error("session setup failed", "path", abs, "error", err)
		r.sink.Failed(displayPath(abs), err)
		return
	}

	head := dom.DetachChildren(fresh.Head())
	body := dom.DetachChildren(fresh.Body())

	s.mu.Lock()
	s.stats.Err = nil
	if h := s.doc.Head(); h != nil {
		// Head content is carried for faithful output; the observer root
		// is the body, so these records are filtered out unseen.
		s.doc.ReplaceChildren(h, head...)
	}
	s.doc.ReplaceChildren(s.doc.Body(), body...)
	s.mu.Unlock()

	r.sink.Changed(s.path)
}

func (r *watchRunner) lookup(abs string) *watchSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[abs]
}

// session returns the existing session for abs or builds one: an empty
// document shell with an observing scanner rooted at its body.
func (r *watchRunner) session(abs string) (*watchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[abs]; ok {
		return s, nil
	}

	shell, err := dom.ParseString("<html><head></head><body></body></html>")
	if err != nil {
		return nil, err
	}

	s := &watchSession{
		path: displayPath(abs),
		doc:  shell,
	}
	s.stats.Path = s.path

	s.state = scanner.NewState(scanner.StateConfig{
		Marker:     r.cfg.Scan.MarkerClass,
		MaxPending: r.cfg.Scan.MaxPendingNodes,
		Overflow:   scanner.OverflowPolicy(r.cfg.Scan.OverflowPolicy),
		Logger:     r.log.WithDocument(s.path),
	})

	scanner.StartObserver(s.state, scanner.ObserverConfig{
		Root:     shell.Body(),
		Convert:  r.annotator.Converter(shell),
		Interval: r.cfg.Scan.DebounceInterval(),
		Facility: shell.ObserverFactory(),
		Gate:     &s.mu,
		OnPass: func(stats scanner.PassStats) {
			r.pass(s, stats)
		},
	})

	r.sessions[abs] = s
	return s, nil
}

// pass runs under the session gate: the pass that produced stats still
// holds it, so reading and rendering the tree here is race-free.
func (r *watchRunner) pass(s *watchSession, stats scanner.PassStats) {
	s.stats.Observe(stats)

	if r.outDir != "" {
		if err := r.writeOutput(s); err != nil {
			r.log.Error("output write failed", "path", s.path, "error", err)
			s.stats.Err = err
			r.sink.Failed(s.path, err)
			return
		}
	}
	r.sink.Pass(s.path, stats)
}

func (r *watchRunner) writeOutput(s *watchSession) error {
	dest := filepath.Join(r.outDir, mirrorName(s.path))
	return writeDocument(s.doc, dest)
}

// shutdown stops every session's observer. Failures inside a disconnect
// are logged and absorbed by the scanner; teardown always completes.
func (r *watchRunner) shutdown() {
	r.mu.Lock()
	sessions := make([]*watchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		scanner.StopObserver(s.state)
	}
}

// summary folds every session's accumulated statistics into a report.
func (r *watchRunner) summary() *report.Report {
	r.mu.Lock()
	sessions := make([]*watchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	rep := report.New()
	for _, s := range sessions {
		s.mu.Lock()
		rep.Add(s.stats)
		s.mu.Unlock()
	}
	return rep
}
