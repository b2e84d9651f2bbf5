package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

type subscription struct {
	adapter *Adapter
	changes chan model.Change
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Subscribe listens on the user's channel over a dedicated connection
// taken out of the pool. If the connection drops it is re-established and
// a synthetic change is emitted so the consumer reloads whatever it missed.
func (a *Adapter) Subscribe(ctx context.Context) (store.Subscription, error) {
	conn, err := a.listen(ctx)
	if err != nil {
		return nil, &model.FetchError{Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		adapter: a,
		changes: make(chan model.Change, 16),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go sub.run(ctx, conn)
	return sub, nil
}

// maxChannelLen is the Postgres identifier limit NOTIFY channels share.
const maxChannelLen = 63

func (a *Adapter) listen(ctx context.Context) (*pgx.Conn, error) {
	if len(a.Channel()) > maxChannelLen {
		return nil, fmt.Errorf("channel %q exceeds %d bytes", a.Channel(), maxChannelLen)
	}

	pooled, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{a.Channel()}.Sanitize()); err != nil {
		closeConn(conn)
		return nil, err
	}
	return conn, nil
}

func (s *subscription) Changes() <-chan model.Change { return s.changes }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

func (s *subscription) run(ctx context.Context, conn *pgx.Conn) {
	defer close(s.done)
	defer close(s.changes)

	logger := s.adapter.logger.With("channel", s.adapter.Channel())
	for {
		err := s.receive(ctx, conn)
		closeConn(conn)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("realtime connection lost", "err", err)

		conn = s.reconnect(ctx)
		if conn == nil {
			return
		}
		logger.Info("realtime connection restored")
		if !s.emit(ctx, model.Change{Op: model.ChangeUpdate}) {
			closeConn(conn)
			return
		}
	}
}

func (s *subscription) receive(ctx context.Context, conn *pgx.Conn) error {
	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var change model.Change
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			s.adapter.logger.Warn("unreadable change payload", "payload", notification.Payload, "err", err)
			change = model.Change{Op: model.ChangeUpdate}
		}
		if !s.emit(ctx, change) {
			return ctx.Err()
		}
	}
}

// reconnect retries until a listener is back or ctx ends, in which case it
// returns nil.
func (s *subscription) reconnect(ctx context.Context) *pgx.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.adapter.retry):
		}

		conn, err := s.adapter.listen(ctx)
		if err == nil {
			return conn
		}
		s.adapter.logger.Warn("realtime reconnect failed", "err", err)
	}
}

func (s *subscription) emit(ctx context.Context, change model.Change) bool {
	select {
	case s.changes <- change:
		return true
	case <-ctx.Done():
		return false
	}
}

func closeConn(conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}
