package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldDue
	fieldPriority
)

func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Due (YYYY-MM-DD HH:MM)"},
		{Label: "Priority (space/←→)"},
	}

	if task == nil {
		fields[fieldPriority].Value = string(model.PriorityMedium)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldPriority].Value = string(task.Priority)
	if task.DueDate != nil {
		fields[fieldDue].Value = task.DueDate.Local().Format(dueLayout)
	}
	return fields
}

// parseFormFields leaves title validation to the store so an empty title
// is reported the same way everywhere.
func parseFormFields(fields []formField) (model.Draft, error) {
	priority, err := model.ParsePriority(fields[fieldPriority].Value)
	if err != nil {
		return model.Draft{}, err
	}

	due, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return model.Draft{}, err
	}

	return model.Draft{
		Title:       fields[fieldTitle].Value,
		Description: fields[fieldDescription].Value,
		DueDate:     due,
		Priority:    priority,
	}, nil
}

// parseDue reads local wall time; a bare date means midnight.
func parseDue(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range []string{dueLayout, "2006-01-02"} {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q", trimmed)
}

func isPriorityField(label string) bool {
	return strings.HasPrefix(label, "Priority")
}
