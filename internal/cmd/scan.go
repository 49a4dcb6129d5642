package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/pricelens/pricelens/internal/annotate"
	"github.com/pricelens/pricelens/internal/config"
	"github.com/pricelens/pricelens/internal/dom"
	"github.com/pricelens/pricelens/internal/logging"
	"github.com/pricelens/pricelens/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Rewrite prices in documents once",
	Long: `Scan documents for price-like text and rewrite each match into a
marked span.

Without -w or -o the scan is a dry run: documents are processed and the
summary reports what would change, but nothing is written. Directories
are walked for documents matching the configured extensions. A single
"-" reads one document from stdin and writes the annotated markup to
stdout.

Examples:
  # Dry run over a directory
  pricelens scan ./site

  # Rewrite files in place
  pricelens scan -w ./site

  # Write annotated copies elsewhere
  pricelens scan -o ./converted index.html pricing.html

  # Filter through a pipeline
  curl -s https://example.test/store | pricelens scan -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

var (
	scanOutDir       string
	scanWrite        bool
	scanPattern      string
	scanTemplate     string
	scanMarker       string
	scanKeepOriginal bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanOutDir, "out-dir", "o", "", "Write annotated copies into this directory")
	scanCmd.Flags().BoolVarP(&scanWrite, "write", "w", false, "Rewrite documents in place")
	scanCmd.Flags().StringVar(&scanPattern, "pattern", "", "Price pattern (regex, overrides config)")
	scanCmd.Flags().StringVar(&scanTemplate, "template", "", "Replacement template (overrides config)")
	scanCmd.Flags().StringVar(&scanMarker, "marker", "", "Marker class for converted spans (overrides config)")
	scanCmd.Flags().BoolVar(&scanKeepOriginal, "keep-original", false, "Record the raw match on each converted span")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanWrite && scanOutDir != "" {
		return fmt.Errorf("--write and --out-dir are mutually exclusive")
	}

	cfg := config.Get()
	log, err := openLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer log.Close()

	annotator, err := newAnnotator(cfg, log)
	if err != nil {
		return err
	}

	// Stdin mode: one document in, annotated markup out.
	if len(args) == 1 && args[0] == "-" {
		return scanStdin(cmd.InOrStdin(), cmd.OutOrStdout(), annotator)
	}
	for _, arg := range args {
		if arg == "-" {
			return fmt.Errorf("cannot mix \"-\" with file arguments")
		}
	}

	files, err := collectDocuments(args, cfg.Watch.Extensions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}

	rep := report.New()
	workers := pool.New().WithMaxGoroutines(cfg.Scan.Parallelism)
	for _, path := range files {
		workers.Go(func() {
			rep.Add(scanFile(path, annotator, log))
		})
	}
	workers.Wait()

	fmt.Fprint(cmd.OutOrStdout(), rep.Render())

	if t := rep.Totals(); t.Failed == t.Documents {
		return fmt.Errorf("all %d documents failed", t.Documents)
	}
	return nil
}

// scanFile processes one document and reports its statistics. Failures
// are recorded on the stats rather than aborting the whole scan.
func scanFile(path string, annotator *annotate.Annotator, log *logging.Logger) report.DocumentStats {
	stats := report.DocumentStats{Path: path}
	dlog := log.WithComponent("scan").WithDocument(path)

	start := time.Now()
	doc, err := dom.ParseFile(path)
	if err != nil {
		dlog.Error("parse failed", "error", err)
		stats.Err = err
		return stats
	}

	visited, rewritten := annotator.AnnotateDocument(doc)
	stats.Passes = 1
	stats.TextVisited = visited
	stats.Conversions = rewritten
	stats.Duration = time.Since(start)
	dlog.Info("document scanned", "visited", visited, "converted", rewritten)

	dest := outputPath(path)
	if dest == "" {
		return stats
	}
	if err := writeDocument(doc, dest); err != nil {
		dlog.Error("write failed", "error", err, "dest", dest)
		stats.Err = err
	}
	return stats
}

// scanStdin annotates a single document read from r and writes the
// rewritten markup to w.
func scanStdin(r io.Reader, w io.Writer, annotator *annotate.Annotator) error {
	doc, err := dom.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse stdin: %w", err)
	}
	annotator.AnnotateDocument(doc)
	return doc.Render(w)
}

// newAnnotator builds the annotator from config with flag overrides
// applied.
func newAnnotator(cfg *config.Config, log *logging.Logger) (*annotate.Annotator, error) {
	acfg := annotate.Config{
		Pattern:      cfg.Rewrite.Pattern,
		Template:     cfg.Rewrite.Template,
		Marker:       cfg.Scan.MarkerClass,
		KeepOriginal: cfg.Rewrite.KeepOriginal,
		Logger:       log.WithComponent("annotate"),
	}
	if scanPattern != "" {
		acfg.Pattern = scanPattern
	}
	if scanTemplate != "" {
		acfg.Template = scanTemplate
	}
	if scanMarker != "" {
		acfg.Marker = scanMarker
	}
	if scanKeepOriginal {
		acfg.KeepOriginal = true
	}

	annotator, err := annotate.New(acfg)
	if err != nil {
		return nil, fmt.Errorf("invalid rewrite configuration: %w", err)
	}
	return annotator, nil
}

// outputPath resolves where a scanned document should be written. Empty
// means a dry run.
func outputPath(path string) string {
	if scanWrite {
		return path
	}
	if scanOutDir == "" {
		return ""
	}
	return filepath.Join(scanOutDir, mirrorName(path))
}

// displayPath shortens path relative to the working directory when it
// sits underneath it.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// mirrorName picks the path under which a document's annotated copy is
// written inside an output directory. Documents outside the working tree
// collapse to their base name.
func mirrorName(path string) string {
	p := displayPath(path)
	if filepath.IsAbs(p) {
		return filepath.Base(p)
	}
	return p
}

// writeDocument renders doc to dest, creating parent directories as
// needed.
func writeDocument(doc *dom.Document, dest string) error {
	rendered, err := doc.RenderString()
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// collectDocuments expands the path arguments into a sorted, deduplicated
// list of document files. Explicit files are taken as-is; directories are
// walked for the configured extensions.
func collectDocuments(args []string, extensions []string) ([]string, error) {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := extSet[strings.ToLower(filepath.Ext(p))]; ok {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// openLogger builds the run logger from the logging config.
func openLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	if cfg.Logging.Dir == "" {
		return logging.NewLogger("", cfg.Logging.Level)
	}
	return logging.NewLoggerWithRotation(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}
