package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority accepts any casing; an empty value means medium.
func ParsePriority(value string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case "", PriorityMedium:
		return PriorityMedium, nil
	case PriorityLow:
		return PriorityLow, nil
	case PriorityHigh:
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, value)
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Priority(raw).Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	*p = Priority(raw)
	return nil
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Draft is a task that has not been assigned an id or creation time yet.
type Draft struct {
	Title       string
	Description string
	Completed   bool
	DueDate     *time.Time
	Priority    Priority
}

// Normalize trims text fields and defaults the priority. It reports
// ErrEmptyTitle and ErrInvalidPriority without touching the draft.
func (d Draft) Normalize() (Draft, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Draft{}, ErrEmptyTitle
	}
	priority, err := ParsePriority(string(d.Priority))
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		Completed:   d.Completed,
		DueDate:     d.DueDate,
		Priority:    priority,
	}, nil
}

func (t Task) Draft() Draft {
	return Draft{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
	}
}

type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// Change is a realtime notification that a remote row moved. Consumers
// reload instead of patching, so only the op and id are carried.
type Change struct {
	Op ChangeOp `json:"op"`
	ID string   `json:"id"`
}
