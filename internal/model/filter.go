package model

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status %q", value)
}

// ParsePriorityFilter is ParsePriority with "all" (or empty) meaning no
// restriction, reported as the empty Priority.
func ParsePriorityFilter(value string) (Priority, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" || trimmed == "all" {
		return "", nil
	}
	return ParsePriority(trimmed)
}

type Filter struct {
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Query    string   `json:"query"`
}

func (f Filter) Match(task Task) bool {
	switch f.Status {
	case StatusActive:
		if task.Completed {
			return false
		}
	case StatusCompleted:
		if !task.Completed {
			return false
		}
	}
	if f.Priority != "" && task.Priority != f.Priority {
		return false
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(task.Title), query) ||
		strings.Contains(strings.ToLower(task.Description), query)
}

// Apply returns the matching tasks in their original order.
func (f Filter) Apply(tasks []Task) []Task {
	result := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			result = append(result, task)
		}
	}
	return result
}

type Stats struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

func Summarize(tasks []Task) Stats {
	stats := Stats{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			stats.Done++
		}
	}
	return stats
}

func (s Stats) String() string {
	return fmt.Sprintf("%d/%d Done", s.Done, s.Total)
}
