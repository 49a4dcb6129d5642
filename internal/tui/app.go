package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// Options configures the watch dashboard.
type Options struct {
	// Roots are the watched directories and files, for display.
	Roots []string

	// OutDir is where annotated copies are written, empty if disabled.
	OutDir string

	// OnReady runs once the event loop is receiving messages. The watch
	// runner starts its watcher and initial sweep here so no message is
	// sent into a program that is not yet running.
	OnReady func()
}

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
}

// New creates a new dashboard application
func New(opts Options) *App {
	return &App{model: NewModel(opts)}
}

// Run starts the dashboard and blocks until it exits.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)

	return err
}

// Send delivers a message to the running program. Safe from any
// goroutine; messages sent after exit are dropped.
func (a *App) Send(m tea.Msg) {
	if a.program != nil {
		a.program.Send(m)
	}
}
