package notify

import (
	"context"
	"sync"
)

// Hub fans reminders out to in-process subscribers such as open UI
// screens and event streams. A subscriber that is not keeping up loses
// reminders instead of blocking the scheduler.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Reminder]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 8
	}
	return &Hub{subs: make(map[chan Reminder]struct{}), buffer: buffer}
}

// Subscribe returns a channel of reminders and a cancel func that closes
// it. cancel may be called more than once.
func (h *Hub) Subscribe() (<-chan Reminder, func()) {
	ch := make(chan Reminder, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Notify(_ context.Context, reminder Reminder) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- reminder:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
