package callsession

import (
	"context"
	"errors"
	"time"

	"counsel-platform/internal/calls"
)

// HistoryFinisher is the part of calls.Repository the recorder needs.
type HistoryFinisher interface {
	Finish(ctx context.Context, channelID string, status calls.CallStatus, durationSeconds int, endedAt time.Time) (bool, error)
}

// RepositoryRecorder closes the call history row with the session outcome.
type RepositoryRecorder struct {
	Calls HistoryFinisher
}

func (r RepositoryRecorder) RecordOutcome(ctx context.Context, o Outcome) error {
	_, err := r.Calls.Finish(ctx, o.ChannelID, o.HistoryStatus(), o.DurationSeconds, o.EndedAt)
	if errors.Is(err, calls.ErrNotFound) {
		// Sessions started without a history row have nothing to close.
		return nil
	}
	return err
}

// Recorders runs each recorder in order and returns the first error.
type Recorders []HistoryRecorder

func (rs Recorders) RecordOutcome(ctx context.Context, o Outcome) error {
	var firstErr error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordOutcome(ctx, o); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
