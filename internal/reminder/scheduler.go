// Package reminder fires one notification per task when its due time
// arrives.
package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/notify"
)

const (
	DefaultInterval  = time.Second
	DefaultTolerance = time.Second
)

var ErrRunning = errors.New("reminder scheduler already running")

// Source supplies the tasks to check. *store.Store satisfies it.
type Source interface {
	Snapshot() []model.Task
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTolerance sets how far from the due time a tick may fire.
func WithTolerance(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tolerance = d
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Scheduler struct {
	source    Source
	notifier  notify.Notifier
	interval  time.Duration
	tolerance time.Duration
	clock     func() time.Time
	logger    *log.Logger

	mu       sync.Mutex
	notified map[string]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(source Source, notifier notify.Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:    source,
		notifier:  notifier,
		interval:  DefaultInterval,
		tolerance: DefaultTolerance,
		clock:     time.Now,
		logger:    logging.Discard(),
		notified:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick notifies every open task whose due time is within the tolerance of
// now and that has not been notified before. It returns how many fired.
// A task is notified at most once for the scheduler's lifetime, even if
// its due date is edited later.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.clock()

	var due []model.Task
	s.mu.Lock()
	for _, task := range s.source.Snapshot() {
		if task.Completed || task.DueDate == nil {
			continue
		}
		if _, done := s.notified[task.ID]; done {
			continue
		}
		delta := task.DueDate.Sub(now)
		if delta < -s.tolerance || delta > s.tolerance {
			continue
		}
		s.notified[task.ID] = struct{}{}
		due = append(due, task)
	}
	s.mu.Unlock()

	for _, task := range due {
		if err := s.notifier.Notify(ctx, notify.NewReminder(task)); err != nil {
			s.logger.Warn("deliver reminder", "id", task.ID, "err", err)
		}
	}
	return len(due)
}

// Start ticks every interval on its own goroutine until Stop is called or
// ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	s.logger.Debug("reminder scheduler started", "interval", s.interval)
	return nil
}

// Stop cancels the ticker and waits for an in-flight tick to finish. It
// is safe to call more than once or without Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
