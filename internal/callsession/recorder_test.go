package callsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"counsel-platform/internal/calls"
)

type finishCall struct {
	channelID string
	status    calls.CallStatus
	duration  int
}

type fakeFinisher struct {
	calls []finishCall
	err   error
}

func (f *fakeFinisher) Finish(ctx context.Context, channelID string, status calls.CallStatus, durationSeconds int, endedAt time.Time) (bool, error) {
	f.calls = append(f.calls, finishCall{channelID, status, durationSeconds})
	return f.err == nil, f.err
}

func TestRepositoryRecorder_MapsOutcome(t *testing.T) {
	f := &fakeFinisher{}
	r := RepositoryRecorder{Calls: f}

	cases := []struct {
		out  Outcome
		want calls.CallStatus
	}{
		{Outcome{ChannelID: "a", Answered: true, DurationSeconds: 42, Reason: ReasonRemoteOffline}, calls.CallStatusEnded},
		{Outcome{ChannelID: "b", Reason: ReasonRemoteDeclined}, calls.CallStatusDeclined},
		{Outcome{ChannelID: "c", Reason: ReasonRingTimeout}, calls.CallStatusMissed},
		{Outcome{ChannelID: "d", Reason: ReasonUserEnded}, calls.CallStatusMissed},
	}
	for _, tc := range cases {
		if err := r.RecordOutcome(context.Background(), tc.out); err != nil {
			t.Fatalf("record %s: %v", tc.out.ChannelID, err)
		}
	}
	for i, tc := range cases {
		if f.calls[i].status != tc.want {
			t.Fatalf("%s: status = %s, want %s", tc.out.ChannelID, f.calls[i].status, tc.want)
		}
	}
	if f.calls[0].duration != 42 {
		t.Fatalf("expected duration to be carried")
	}
}

func TestRepositoryRecorder_MissingRowIsNotAnError(t *testing.T) {
	r := RepositoryRecorder{Calls: &fakeFinisher{err: calls.ErrNotFound}}
	if err := r.RecordOutcome(context.Background(), Outcome{ChannelID: "x"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRecorders_RunsAllAndReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	a := &fakeFinisher{err: boom}
	b := &fakeFinisher{}
	rs := Recorders{RepositoryRecorder{Calls: a}, nil, RepositoryRecorder{Calls: b}}

	if err := rs.RecordOutcome(context.Background(), Outcome{ChannelID: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(a.calls) != 1 || len(b.calls) != 1 {
		t.Fatalf("expected both recorders to run")
	}
}
