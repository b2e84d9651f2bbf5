package store

import (
	"context"
	"sync"
)

// Watch reloads the store whenever its subscription reports a change.
type Watch struct {
	sub    Subscription
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Watch subscribes through the adapter and reloads on every change event
// until the returned Watch is closed or ctx ends.
func (s *Store) Watch(ctx context.Context) (*Watch, error) {
	sub, err := s.adapter.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.run(ctx, s)
	return w, nil
}

func (w *Watch) run(ctx context.Context, s *Store) {
	defer close(w.done)

	changes := w.sub.Changes()
	if changes == nil {
		<-ctx.Done()
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			s.logger.Debug("remote change", "op", change.Op, "id", change.ID)
			_ = s.Reload(ctx)
		}
	}
}

// Close stops the reload loop and releases the subscription. It waits for
// the loop to exit and is safe to call more than once.
func (w *Watch) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.sub.Close()
		<-w.done
	})
	return w.closeErr
}
