// Package notify delivers reminder alerts. Every delivery is best effort.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

const ReminderTitle = "Task Reminder"

type Reminder struct {
	Title string     `json:"title"`
	Body  string     `json:"body"`
	Task  model.Task `json:"task"`
}

func NewReminder(task model.Task) Reminder {
	return Reminder{
		Title: ReminderTitle,
		Body:  fmt.Sprintf("Time to do: %s", task.Title),
		Task:  task,
	}
}

type Notifier interface {
	Notify(ctx context.Context, reminder Reminder) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, reminder Reminder) error

func (f Func) Notify(ctx context.Context, reminder Reminder) error {
	return f(ctx, reminder)
}

// Multi delivers to every notifier, even after a failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, reminder Reminder) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, reminder); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
