// Package store keeps the ordered task collection in memory and routes
// every mutation through a persistence adapter.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type Store struct {
	// writeMu serializes mutations so they apply in issue order. mu guards
	// tasks and listener; it is never held across adapter calls.
	writeMu sync.Mutex
	mu      sync.RWMutex
	tasks   []model.Task

	adapter   Adapter
	snapshots SnapshotAdapter
	records   RecordAdapter

	logger   *log.Logger
	clock    func() time.Time
	newID    func() string
	listener func([]model.Task)

	reloads singleflight.Group
}

// NewLocal builds a store that appends new tasks and saves the whole
// collection after every mutation.
func NewLocal(adapter SnapshotAdapter, opts ...Option) *Store {
	s := newStore(opts)
	s.adapter = adapter
	s.snapshots = adapter
	return s
}

// NewRemote builds a store that writes each task to the remote service
// first and only applies the change once the write succeeded. New tasks
// are prepended to match the newest-first order of remote loads.
func NewRemote(adapter RecordAdapter, opts ...Option) *Store {
	s := newStore(opts)
	s.adapter = adapter
	s.records = adapter
	return s
}

func newStore(opts []Option) *Store {
	s := &Store{}
	defaults(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange replaces the listener set by WithListener.
func (s *Store) OnChange(fn func([]model.Task)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

func (s *Store) Remote() bool { return s.records != nil }

// Load populates the store from the adapter. On failure the error is
// logged, the current state is kept and the error is returned.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.adapter.Load(ctx)
	if err != nil {
		s.logger.Error("load tasks", "err", err)
		return err
	}
	s.ReplaceAll(tasks)
	s.logger.Debug("loaded tasks", "count", len(tasks))
	return nil
}

// Reload is Load with concurrent callers sharing one adapter query.
func (s *Store) Reload(ctx context.Context) error {
	_, err, _ := s.reloads.Do("reload", func() (any, error) {
		tasks, err := s.adapter.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.ReplaceAll(tasks)
		return nil, nil
	})
	if err != nil {
		s.logger.Warn("reload tasks", "err", err)
		return err
	}
	return nil
}

func (s *Store) ReplaceAll(tasks []model.Task) {
	next := make([]model.Task, len(tasks))
	copy(next, tasks)
	s.commit(func([]model.Task) []model.Task { return next })
}

func (s *Store) Add(ctx context.Context, draft model.Draft) (model.Task, error) {
	draft, err := draft.Normalize()
	if err != nil {
		return model.Task{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	task := model.Task{
		ID:          s.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		Completed:   draft.Completed,
		DueDate:     draft.DueDate,
		Priority:    draft.Priority,
		CreatedAt:   s.clock(),
	}

	if s.records != nil {
		if err := s.records.Create(ctx, task); err != nil {
			return model.Task{}, writeError("create", task.ID, err)
		}
		// A realtime reload may already have delivered the new row.
		s.commit(func(tasks []model.Task) []model.Task {
			for i := range tasks {
				if tasks[i].ID == task.ID {
					tasks[i] = task
					return tasks
				}
			}
			return append([]model.Task{task}, tasks...)
		})
		return task, nil
	}

	saved := s.commit(func(tasks []model.Task) []model.Task {
		return append(tasks, task)
	})
	return task, s.save(ctx, saved)
}

// ToggleComplete flips the completion flag. An unknown id is a no-op.
func (s *Store) ToggleComplete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.Get(id)
	if !ok {
		return nil
	}
	current.Completed = !current.Completed
	return s.replace(ctx, current)
}

// Edit overwrites the task with the same id. ID and CreatedAt always keep
// their stored values. An unknown id is a no-op.
func (s *Store) Edit(ctx context.Context, task model.Task) error {
	draft, err := task.Draft().Normalize()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.Get(task.ID)
	if !ok {
		return nil
	}
	current.Title = draft.Title
	current.Description = draft.Description
	current.Completed = draft.Completed
	current.DueDate = draft.DueDate
	current.Priority = draft.Priority
	return s.replace(ctx, current)
}

// Delete removes the task. An unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok := s.Get(id); !ok {
		return nil
	}

	if s.records != nil {
		if err := s.records.Delete(ctx, id); err != nil {
			return writeError("delete", id, err)
		}
	}

	saved := s.commit(func(tasks []model.Task) []model.Task {
		kept := tasks[:0]
		for _, t := range tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept
	})
	if s.records != nil {
		return nil
	}
	return s.save(ctx, saved)
}

// replace must be called with writeMu held.
func (s *Store) replace(ctx context.Context, task model.Task) error {
	if s.records != nil {
		if err := s.records.Update(ctx, task); err != nil {
			return writeError("update", task.ID, err)
		}
	}

	saved := s.commit(func(tasks []model.Task) []model.Task {
		for i := range tasks {
			if tasks[i].ID == task.ID {
				tasks[i] = task
			}
		}
		return tasks
	})
	if s.records != nil {
		return nil
	}
	return s.save(ctx, saved)
}

// commit applies fn to a private copy of the collection, publishes the
// result and notifies the listener. It returns the published collection.
func (s *Store) commit(fn func([]model.Task) []model.Task) []model.Task {
	s.mu.Lock()
	working := make([]model.Task, len(s.tasks))
	copy(working, s.tasks)
	s.tasks = fn(working)
	published := s.copyLocked()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(published)
	}
	return published
}

func (s *Store) save(ctx context.Context, tasks []model.Task) error {
	if err := s.snapshots.Save(ctx, tasks); err != nil {
		s.logger.Error("save tasks", "err", err, "count", len(tasks))
		return writeError("save", "", err)
	}
	return nil
}

func writeError(op, id string, err error) error {
	var we *model.WriteError
	if errors.As(err, &we) {
		return err
	}
	return &model.WriteError{Op: op, ID: id, Err: err}
}

func (s *Store) Snapshot() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() []model.Task {
	tasks := make([]model.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

func (s *Store) List(filter model.Filter) []model.Task {
	return filter.Apply(s.Snapshot())
}

func (s *Store) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Summarize(s.tasks)
}
