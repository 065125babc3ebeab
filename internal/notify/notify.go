// Package notify surfaces user-facing error toasts.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Notifier shows a short error message to the reader.
type Notifier interface {
	ShowErrorToast(message string)
}

// Func adapts a function to Notifier.
type Func func(message string)

// ShowErrorToast calls f.
func (f Func) ShowErrorToast(message string) { f(message) }

// Log writes toasts to a logger at error level.
type Log struct {
	Logger *log.Logger
}

// ShowErrorToast logs message.
func (l Log) ShowErrorToast(message string) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Error("toast", "message", message)
}

// Terminal prints toasts as styled lines.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	style lipgloss.Style
}

// NewTerminal creates a Terminal notifier writing to w.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w: w,
		style: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}).
			Bold(true),
	}
}

// ShowErrorToast prints message.
func (t *Terminal) ShowErrorToast(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.w, t.style.Render("✗ "+message))
}

// Multi fans a toast out to several notifiers.
type Multi []Notifier

// ShowErrorToast forwards message to every notifier.
func (m Multi) ShowErrorToast(message string) {
	for _, n := range m {
		if n != nil {
			n.ShowErrorToast(message)
		}
	}
}

// Channel hands toasts to a UI loop. Toasts are dropped while the buffer
// is full.
type Channel chan string

// NewChannel returns a Channel buffering up to n toasts.
func NewChannel(n int) Channel {
	return make(Channel, n)
}

// ShowErrorToast queues message.
func (c Channel) ShowErrorToast(message string) {
	select {
	case c <- message:
	default:
	}
}

// Recorder keeps every toast it is shown.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// ShowErrorToast records message.
func (r *Recorder) ShowErrorToast(message string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

// Messages returns the recorded toasts.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}
