package store

import (
	"context"
	"errors"
	"sync"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type memSnapshots struct {
	mu      sync.Mutex
	saved   []model.Task
	saves   int
	saveErr error
}

func (m *memSnapshots) Load(context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.saved...), nil
}

func (m *memSnapshots) Save(_ context.Context, tasks []model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append([]model.Task(nil), tasks...)
	return nil
}

func (m *memSnapshots) Subscribe(context.Context) (Subscription, error) {
	return NoSubscription{}, nil
}

var errTransport = errors.New("connection refused")

// fakeRecords stands in for the remote service: rows holds the source of
// truth newest first, changes feeds the subscription.
type fakeRecords struct {
	mu        sync.Mutex
	rows      []model.Task
	loads     int
	createErr error
	updateErr error
	deleteErr error
	loadErr   error

	changes chan model.Change
	closed  int

	// afterCreate runs once the row is stored, outside the lock.
	afterCreate func()
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{changes: make(chan model.Change, 8)}
}

func (f *fakeRecords) Load(context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, &model.FetchError{Err: f.loadErr}
	}
	return append([]model.Task(nil), f.rows...), nil
}

func (f *fakeRecords) Create(_ context.Context, task model.Task) error {
	f.mu.Lock()
	if f.createErr != nil {
		f.mu.Unlock()
		return &model.WriteError{Op: "create", ID: task.ID, Err: f.createErr}
	}
	f.rows = append([]model.Task{task}, f.rows...)
	hook := f.afterCreate
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeRecords) Update(_ context.Context, task model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.rows {
		if f.rows[i].ID == task.ID {
			f.rows[i] = task
		}
	}
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeRecords) Subscribe(context.Context) (Subscription, error) {
	return f, nil
}

func (f *fakeRecords) Changes() <-chan model.Change { return f.changes }

func (f *fakeRecords) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRecords) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}
