package reporting

import (
	"context"
	"errors"
	"time"

	"counsel-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must filter to calls the participant placed or received.
// - Range is half-open: [from, to) on the call start time.
type Repository interface {
	CountByStatus(ctx context.Context, participantID string, from, to time.Time) ([]StatusCount, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.ParticipantID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.CountByStatus(ctx, req.ParticipantID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{ParticipantID: req.ParticipantID, Range: req.Range}
	for _, r := range rows {
		out.TotalCalls += r.Calls
		switch r.Status {
		case calls.CallStatusEnded:
			out.CompletedCalls += r.Calls
			out.TotalDurationSeconds += r.DurationSeconds
		case calls.CallStatusMissed:
			out.MissedCalls += r.Calls
		case calls.CallStatusDeclined:
			out.DeclinedCalls += r.Calls
		case calls.CallStatusCalling, calls.CallStatusActive:
			out.InProgressCalls += r.Calls
		}
	}
	// Only answered calls have talk time.
	if out.CompletedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.CompletedCalls
	}
	if finished := out.TotalCalls - out.InProgressCalls; finished > 0 {
		out.AnswerRate = float64(out.CompletedCalls) / float64(finished)
	}
	return out, nil
}
