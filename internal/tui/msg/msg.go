// Package msg defines the message types used by the dashboard's Bubbletea
// event loop.
//
// Watch runs its scanners on their own goroutines; everything they need to
// surface in the UI crosses over as one of these [tea.Msg] types. Keeping
// the types in their own package gives the runner side a dependency on the
// messages without a dependency on the model.
package msg

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pricelens/pricelens/internal/scanner"
)

// TickMsg is sent periodically to drive UI updates.
type TickMsg time.Time

// DocumentChangedMsg signals that a watched document was reloaded and its
// mutations queued for the next pass.
type DocumentChangedMsg struct {
	Path string
}

// PassMsg carries the statistics of one completed batch pass.
type PassMsg struct {
	Path  string
	Stats scanner.PassStats
}

// DocumentFailedMsg signals that a document could not be reloaded or
// written. An empty Path means the failure was not tied to one document.
type DocumentFailedMsg struct {
	Path string
	Err  error
}

// ErrMsg wraps an error to be displayed in the UI.
type ErrMsg struct {
	Err error
}

// Tick returns a command that sends a TickMsg after 100ms.
func Tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
