package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

const dueLayout = "2006-01-02 15:04"

func splitByCompletion(tasks []model.Task) (pending, done []model.Task) {
	pending = make([]model.Task, 0, len(tasks))
	done = make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Completed {
			done = append(done, task)
		} else {
			pending = append(pending, task)
		}
	}
	return pending, done
}

func priorityMarker(priority model.Priority) string {
	switch priority {
	case model.PriorityHigh:
		return "!!!"
	case model.PriorityMedium:
		return "!! "
	default:
		return "!  "
	}
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "n/a"
	}
	return due.Local().Format(dueLayout)
}

func formatTaskSummary(task model.Task, now time.Time) string {
	parts := []string{priorityMarker(task.Priority), task.Title}
	if task.DueDate != nil {
		label := formatDue(task.DueDate)
		if !task.Completed && task.DueDate.Before(now) {
			label += " overdue"
		}
		parts = append(parts, "| "+label)
	}
	return strings.Join(parts, " ")
}

func formatTaskDetail(task model.Task) string {
	status := "active"
	if task.Completed {
		status = "completed"
	}
	lines := []string{
		task.Title,
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Priority: %s", task.Priority),
		fmt.Sprintf("Due: %s", formatDue(task.DueDate)),
		fmt.Sprintf("Created: %s", task.CreatedAt.Local().Format(dueLayout)),
		"",
		task.Description,
	}
	return strings.Join(lines, "\n")
}

func cyclePriorityFilter(current model.Priority, delta int) model.Priority {
	order := append([]model.Priority{""}, model.Priorities...)
	return cycle(order, current, delta)
}

func cycleStatusFilter(current model.Status, delta int) model.Status {
	order := []model.Status{model.StatusAll, model.StatusActive, model.StatusCompleted}
	if current == "" {
		current = model.StatusAll
	}
	return cycle(order, current, delta)
}

func cyclePriority(current string, delta int) string {
	return string(cycle(model.Priorities, model.Priority(strings.ToLower(strings.TrimSpace(current))), delta))
}

func cycle[T comparable](order []T, current T, delta int) T {
	index := 0
	for i, value := range order {
		if value == current {
			index = i
			break
		}
	}
	index = (index + delta + len(order)) % len(order)
	return order[index]
}
