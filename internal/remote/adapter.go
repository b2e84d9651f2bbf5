// Package remote keeps tasks in PostgreSQL, one row per task, scoped to a
// single owning user, and pushes row changes over LISTEN/NOTIFY.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/model"
)

const taskColumns = "id, user_id, title, description, completed, due_date, priority, created_at"

type Adapter struct {
	pool   *pgxpool.Pool
	userID string
	logger *log.Logger

	// retry is the delay between realtime reconnect attempts.
	retry time.Duration
}

func New(pool *pgxpool.Pool, userID string, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Adapter{pool: pool, userID: userID, logger: logger, retry: 2 * time.Second}
}

// Channel is the notification channel the trigger publishes to for this
// adapter's user.
func (a *Adapter) Channel() string {
	return "tasks:" + a.userID
}

// Load returns the user's tasks newest first.
func (a *Adapter) Load(ctx context.Context) ([]model.Task, error) {
	rows, err := a.pool.Query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 ORDER BY created_at DESC",
		a.userID)
	if err != nil {
		return nil, &model.FetchError{Err: err}
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[taskRow])
	if err != nil {
		return nil, &model.FetchError{Err: err}
	}

	tasks := make([]model.Task, 0, len(records))
	for _, record := range records {
		task, err := record.task()
		if err != nil {
			return nil, &model.FetchError{Err: fmt.Errorf("row %s: %w", record.ID, err)}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (a *Adapter) Create(ctx context.Context, task model.Task) error {
	row := newTaskRow(a.userID, task)
	_, err := a.pool.Exec(ctx, `
		INSERT INTO tasks (id, user_id, title, description, completed, due_date, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		row.ID, row.UserID, row.Title, row.Description, row.Completed, row.DueDate, row.Priority, row.createdAt())
	if err != nil {
		return &model.WriteError{Op: "create", ID: task.ID, Err: err}
	}
	return nil
}

// Update rewrites the mutable columns. A row that no longer exists is not
// an error; the next reload drops it.
func (a *Adapter) Update(ctx context.Context, task model.Task) error {
	row := newTaskRow(a.userID, task)
	tag, err := a.pool.Exec(ctx, `
		UPDATE tasks SET title = $3, description = $4, completed = $5, due_date = $6, priority = $7
		WHERE id = $1 AND user_id = $2`,
		row.ID, row.UserID, row.Title, row.Description, row.Completed, row.DueDate, row.Priority)
	if err != nil {
		return &model.WriteError{Op: "update", ID: task.ID, Err: err}
	}
	if tag.RowsAffected() == 0 {
		a.logger.Debug("update matched no row", "id", task.ID)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, id string) error {
	if _, err := a.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, a.userID); err != nil {
		return &model.WriteError{Op: "delete", ID: id, Err: err}
	}
	return nil
}
