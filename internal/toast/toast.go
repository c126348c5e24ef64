// Package toast provides the user-visible notification sink.
package toast

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lifelink-community/pushtray/internal/colors"
)

// Notifier displays a user-visible notification outside the feed.
type Notifier interface {
	// Notify shows a notification. url may be empty; when present it is the
	// deep link offered with the notification.
	Notify(title, body, url string)
	// NotifyError surfaces a failure from an explicitly user-initiated action.
	NotifyError(reason string)
}

// Console writes toasts to a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console notifier writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console notifier writing to w.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify implements Notifier.
func (c *Console) Notify(title, body, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s%s%s", colors.Cyan, title, colors.Reset)
	if body != "" {
		fmt.Fprintf(c.out, ": %s", body)
	}
	fmt.Fprintln(c.out)
	if url != "" {
		fmt.Fprintf(c.out, "  └─ %s\n", url)
	}
}

// NotifyError implements Notifier.
func (c *Console) NotifyError(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%sError:%s %s\n", colors.Red, colors.Reset, reason)
}

// Discard is a Notifier that drops everything. Used when toasts are disabled.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(title, body, url string) {}

// NotifyError implements Notifier.
func (Discard) NotifyError(reason string) {}
