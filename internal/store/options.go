package store

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/model"
)

type Option func(*Store)

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithListener registers fn to receive a copy of the collection after every
// state change. Only one listener is kept; fn runs on the mutating
// goroutine and must not call back into mutations.
func WithListener(fn func([]model.Task)) Option {
	return func(s *Store) {
		s.listener = fn
	}
}

func defaults(s *Store) {
	s.logger = logging.Discard()
	s.clock = time.Now
	s.newID = uuid.NewString
}
