package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const bell = "\a"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1a1b26")).Background(lipgloss.Color("#e0af68")).Padding(0, 1)
	bodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5"))
)

// Terminal writes a styled alert line followed by the terminal bell.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Notify(_ context.Context, reminder Reminder) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "%s %s%s\n", titleStyle.Render(reminder.Title), bodyStyle.Render(reminder.Body), bell)
	return err
}

// Log records reminders in the application log.
type Log struct {
	Logger *log.Logger
}

func (l Log) Notify(_ context.Context, reminder Reminder) error {
	var due string
	if reminder.Task.DueDate != nil {
		due = reminder.Task.DueDate.Format("2006-01-02 15:04")
	}
	l.Logger.Info(reminder.Title, "body", reminder.Body, "id", reminder.Task.ID, "due", due)
	return nil
}
