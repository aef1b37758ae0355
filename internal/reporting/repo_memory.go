package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"counsel-platform/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests and local runs
// without a database. It enforces participant filtering on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Calls []calls.Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) CountByStatus(ctx context.Context, participantID string, from, to time.Time) ([]StatusCount, error) {
	if participantID == "" {
		return nil, errors.New("participant_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := map[calls.CallStatus]int{}
	out := make([]StatusCount, 0)
	for _, c := range r.Calls {
		if c.CallerID != participantID && c.ReceiverID != participantID {
			continue
		}
		if c.StartedAt.Before(from) || !c.StartedAt.Before(to) {
			continue
		}
		i, ok := idx[c.Status]
		if !ok {
			i = len(out)
			idx[c.Status] = i
			out = append(out, StatusCount{Status: c.Status})
		}
		out[i].Calls++
		out[i].DurationSeconds += c.DurationSeconds
	}
	return out, nil
}
