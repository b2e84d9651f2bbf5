package remote

import (
	"time"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

// taskRow is the column shape of the tasks table. Conversion to and from
// model.Task happens only here.
type taskRow struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Completed   bool       `db:"completed"`
	DueDate     *time.Time `db:"due_date"`
	Priority    string     `db:"priority"`
	CreatedAt   time.Time  `db:"created_at"`
}

func newTaskRow(userID string, task model.Task) taskRow {
	row := taskRow{
		ID:        task.ID,
		UserID:    userID,
		Title:     task.Title,
		Completed: task.Completed,
		Priority:  string(task.Priority),
		CreatedAt: task.CreatedAt,
	}
	if task.Description != "" {
		description := task.Description
		row.Description = &description
	}
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		row.DueDate = &due
	}
	return row
}

// createdAt is nil for a zero time so the column default applies.
func (r taskRow) createdAt() *time.Time {
	if r.CreatedAt.IsZero() {
		return nil
	}
	created := r.CreatedAt.UTC()
	return &created
}

func (r taskRow) task() (model.Task, error) {
	priority, err := model.ParsePriority(r.Priority)
	if err != nil {
		return model.Task{}, err
	}
	task := model.Task{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed,
		DueDate:   r.DueDate,
		Priority:  priority,
		CreatedAt: r.CreatedAt,
	}
	if r.Description != nil {
		task.Description = *r.Description
	}
	return task, nil
}
