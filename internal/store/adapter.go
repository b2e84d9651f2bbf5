package store

import (
	"context"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

// Adapter is the read side shared by both persistence variants.
type Adapter interface {
	Load(ctx context.Context) ([]model.Task, error)
	Subscribe(ctx context.Context) (Subscription, error)
}

// SnapshotAdapter persists the whole collection on every change.
type SnapshotAdapter interface {
	Adapter
	Save(ctx context.Context, tasks []model.Task) error
}

// RecordAdapter writes one task at a time to a remote service.
type RecordAdapter interface {
	Adapter
	Create(ctx context.Context, task model.Task) error
	Update(ctx context.Context, task model.Task) error
	Delete(ctx context.Context, id string) error
}

// Subscription delivers remote change events. A nil Changes channel means
// the adapter never pushes. Close may be called more than once.
type Subscription interface {
	Changes() <-chan model.Change
	Close() error
}

// NoSubscription is returned by adapters without a push channel.
type NoSubscription struct{}

func (NoSubscription) Changes() <-chan model.Change { return nil }

func (NoSubscription) Close() error { return nil }
