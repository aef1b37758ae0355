package reporting

import (
	"time"

	"counsel-platform/internal/calls"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one participant.
// ParticipantID is required; calls placed and received both count.
type CallsSummaryRequest struct {
	ParticipantID string    `json:"participant_id"`
	Range         TimeRange `json:"range"`
}

// StatusCount is one row of the per-status aggregate.
type StatusCount struct {
	Status          calls.CallStatus
	Calls           int
	DurationSeconds int
}

type CallsSummary struct {
	ParticipantID string    `json:"participant_id"`
	Range         TimeRange `json:"range"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	MissedCalls     int `json:"missed_calls"`
	DeclinedCalls   int `json:"declined_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	AnswerRate float64 `json:"answer_rate"`
}
