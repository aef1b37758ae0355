package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps the call event trail in process, in append order. Tests and local
// runs without Postgres use it.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the whole trail.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ForChannel returns the trail of one call attempt, oldest first.
func (r *MemoryRepo) ForChannel(channelID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.ChannelID == channelID {
			out = append(out, e)
		}
	}
	return out
}
