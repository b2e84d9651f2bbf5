// Package app assembles one lazytodo session from its configuration and
// tears it down again.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Joseda-hg/lazytodo/internal/config"
	"github.com/Joseda-hg/lazytodo/internal/db"
	"github.com/Joseda-hg/lazytodo/internal/local"
	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/notify"
	"github.com/Joseda-hg/lazytodo/internal/reminder"
	"github.com/Joseda-hg/lazytodo/internal/remote"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

type Session struct {
	Store     *store.Store
	Hub       *notify.Hub
	Scheduler *reminder.Scheduler

	logger *log.Logger
	sqlDB  *sql.DB
	redis  *redis.Client
	pool   *pgxpool.Pool
	watch  *store.Watch

	closeOnce sync.Once
	closeErr  error
}

type Options struct {
	// Alerts, when set, receives a styled alert line with a bell for every
	// reminder. Leave it nil when a full-screen UI owns the terminal.
	Alerts io.Writer
}

// Open connects the configured persistence backend and loads the tasks.
// A remote load failure is logged and the session starts empty.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger, opts Options) (*Session, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Session{logger: logger, Hub: notify.NewHub(8)}

	if err := s.openStore(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}

	if err := s.Store.Load(ctx); err != nil && !s.Store.Remote() {
		_ = s.Close()
		return nil, err
	}

	notifiers := notify.Multi{notify.Log{Logger: logger.WithPrefix("reminder")}, s.Hub}
	if opts.Alerts != nil {
		notifiers = append(notifiers, notify.NewTerminal(opts.Alerts))
	}
	s.Scheduler = reminder.New(s.Store, notifiers,
		reminder.WithInterval(cfg.ReminderInterval.Duration()),
		reminder.WithTolerance(cfg.ReminderTolerance.Duration()),
		reminder.WithLogger(logger),
	)
	return s, nil
}

func (s *Session) openStore(ctx context.Context, cfg config.Config) error {
	storeOpts := []store.Option{store.WithLogger(s.logger.WithPrefix("store"))}

	switch cfg.Mode {
	case config.ModeRemote:
		if err := remote.Migrate(cfg.PostgresDSN); err != nil {
			return err
		}
		pool, err := remote.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		s.pool = pool
		adapter := remote.New(pool, cfg.UserID, s.logger.WithPrefix("remote"))
		s.Store = store.NewRemote(adapter, storeOpts...)
		return nil

	case config.ModeLocal:
		slot, err := s.openSlot(ctx, cfg)
		if err != nil {
			return err
		}
		adapter := local.New(slot, cfg.SnapshotKey, s.logger.WithPrefix("local"))
		s.Store = store.NewLocal(adapter, storeOpts...)
		return nil
	}
	return fmt.Errorf("unknown mode %q", cfg.Mode)
}

func (s *Session) openSlot(ctx context.Context, cfg config.Config) (local.Slot, error) {
	if cfg.Slot == config.SlotRedis {
		client, err := local.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = client
		return local.NewRedisSlot(client), nil
	}

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return nil, err
	}
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s.sqlDB = sqlDB
	return db.NewKV(sqlDB), nil
}

// Start runs the reminder scheduler and, for a remote store, the realtime
// reload loop. A failed realtime subscription is logged and the session
// carries on without live updates.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Scheduler.Start(ctx); err != nil {
		return err
	}
	if !s.Store.Remote() {
		return nil
	}

	watch, err := s.Store.Watch(ctx)
	if err != nil {
		s.logger.Warn("realtime updates unavailable", "err", err)
		return nil
	}
	s.watch = watch
	return nil
}

// Close stops background work before releasing connections. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.Scheduler != nil {
			s.Scheduler.Stop()
		}
		if s.watch != nil {
			errs = append(errs, s.watch.Close())
		}
		if s.pool != nil {
			s.pool.Close()
		}
		if s.redis != nil {
			errs = append(errs, s.redis.Close())
		}
		if s.sqlDB != nil {
			errs = append(errs, s.sqlDB.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
