package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pricelens/pricelens/internal/tui/msg"
	"github.com/pricelens/pricelens/internal/tui/styles"
	"github.com/pricelens/pricelens/internal/util"
)

// docRow tracks one watched document's accumulated state for display.
type docRow struct {
	path      string
	passes    int
	visited   int
	converted int
	lastPass  time.Time
	pending   bool // reloaded, pass not fired yet
	err       error
}

// Model is the Bubbletea model for the watch dashboard.
type Model struct {
	roots   []string
	outDir  string
	onReady func()

	spinner spinner.Model
	width   int
	height  int
	started time.Time

	order []string
	docs  map[string]*docRow
	errs  []string
}

// NewModel creates the dashboard model.
func NewModel(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Primary

	return Model{
		roots:   opts.Roots,
		outDir:  opts.OutDir,
		onReady: opts.OnReady,
		spinner: s,
		started: time.Now(),
		docs:    make(map[string]*docRow),
	}
}

// Init starts the spinner and tick loops, then signals readiness.
// The ready callback runs as a command so the watcher only starts
// sending messages once the event loop is receiving them.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, msg.Tick()}
	if m.onReady != nil {
		ready := m.onReady
		cmds = append(cmds, func() tea.Msg {
			ready()
			return nil
		})
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		return m, nil

	case tea.KeyMsg:
		switch message.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(message)
		return m, cmd

	case msg.TickMsg:
		return m, msg.Tick()

	case msg.DocumentChangedMsg:
		row := m.row(message.Path)
		row.pending = true
		row.err = nil
		return m, nil

	case msg.PassMsg:
		row := m.row(message.Path)
		row.passes++
		row.visited += message.Stats.TextVisited
		row.converted += message.Stats.Conversions
		row.lastPass = time.Now()
		row.pending = false
		row.err = nil
		return m, nil

	case msg.DocumentFailedMsg:
		if message.Path == "" {
			m.pushErr(message.Err)
			return m, nil
		}
		row := m.row(message.Path)
		row.pending = false
		row.err = message.Err
		return m, nil

	case msg.ErrMsg:
		m.pushErr(message.Err)
		return m, nil
	}

	return m, nil
}

// row returns the display row for path, creating it in insertion order.
func (m *Model) row(path string) *docRow {
	if r, ok := m.docs[path]; ok {
		return r
	}
	r := &docRow{path: path}
	m.docs[path] = r
	m.order = append(m.order, path)
	return r
}

func (m *Model) pushErr(err error) {
	if err == nil {
		return
	}
	m.errs = append(m.errs, util.TruncateString(err.Error(), 120))
	if len(m.errs) > 3 {
		m.errs = m.errs[len(m.errs)-3:]
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.Header.Render("Pricelens Watch"))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("Watching: " + strings.Join(m.roots, ", ")))
	b.WriteString("\n")
	if m.outDir != "" {
		b.WriteString(styles.Muted.Render("Output:   " + m.outDir))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.order) == 0 {
		b.WriteString(styles.ContentBox.Render(m.spinner.View() + " Waiting for documents..."))
	} else {
		rows := make([]string, 0, len(m.order))
		for _, path := range m.order {
			rows = append(rows, m.renderRow(m.docs[path]))
		}
		b.WriteString(styles.ContentBox.Render(strings.Join(rows, "\n")))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderTotals())

	for _, e := range m.errs {
		b.WriteString("\n")
		b.WriteString(styles.Error.Render("error: " + e))
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(styles.HelpKey.Render("q") + " quit"))
	return b.String()
}

func (m Model) renderRow(row *docRow) string {
	status := styles.Muted.Render("·")
	switch {
	case row.err != nil:
		status = styles.Error.Render("✗")
	case row.pending:
		status = m.spinner.View()
	case row.passes > 0:
		status = styles.Secondary.Render("✓")
	}

	var line string
	if row.err != nil {
		line = fmt.Sprintf("%s %s  %s", status, styles.Text.Render(row.path),
			styles.Error.Render(row.err.Error()))
	} else {
		detail := fmt.Sprintf("%d passes  %d/%d converted", row.passes, row.converted, row.visited)
		if !row.lastPass.IsZero() {
			detail += styles.Muted.Render(fmt.Sprintf("  %s ago", sinceShort(row.lastPass)))
		}
		line = fmt.Sprintf("%s %s  %s", status, styles.Text.Render(row.path), detail)
	}

	// Keep each row on one line inside the content box.
	if m.width > 12 {
		line = util.TruncateANSI(line, m.width-8)
	}
	return line
}

func (m Model) renderTotals() string {
	var passes, visited, converted, failed int
	for _, r := range m.docs {
		passes += r.passes
		visited += r.visited
		converted += r.converted
		if r.err != nil {
			failed++
		}
	}

	line := fmt.Sprintf("%d documents · %d passes · %d conversions · %d visited",
		len(m.docs), passes, converted, visited)
	if failed > 0 {
		line += styles.Error.Render(fmt.Sprintf(" · %d failed", failed))
	}
	line += styles.Muted.Render(fmt.Sprintf(" · up %s", sinceShort(m.started)))
	return line
}

func sinceShort(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
