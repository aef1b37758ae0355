package callsession

import (
	"fmt"
	"time"

	"counsel-platform/internal/calls"
)

// Status is the lifecycle state of one call attempt.
type Status int

const (
	// StatusIdle is a session that has been created but not started.
	StatusIdle Status = iota
	// StatusRinging is an outbound call waiting for the receiver; the ringer is active.
	StatusRinging
	// StatusConnecting is an inbound call joining the channel, waiting for the caller's media.
	StatusConnecting
	// StatusActive means the remote peer joined; the call timer runs.
	StatusActive
	// StatusEnding means teardown is in progress.
	StatusEnding
	// StatusEnded is terminal.
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRinging:
		return "ringing"
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusEnding:
		return "ending"
	case StatusEnded:
		return "ended"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Closing reports whether teardown has started. No transition leaves a closing state
// except Ending -> Ended.
func (s Status) Closing() bool {
	return s == StatusEnding || s == StatusEnded
}

// EndReason records which trigger won the teardown gate.
type EndReason string

const (
	ReasonUserEnded      EndReason = "user_ended"
	ReasonRingTimeout    EndReason = "ring_timeout"
	ReasonRemoteDeclined EndReason = "remote_declined"
	ReasonRemoteOffline  EndReason = "remote_offline"
	ReasonDisposed       EndReason = "disposed"
)

// Destination is the home view the hosting UI navigates to after teardown.
type Destination string

const (
	HomeUser       Destination = "user_home"
	HomeCounsellor Destination = "counsellor_home"
)

// Session identifies one call attempt from the local participant's point of view.
type Session struct {
	ChannelID  string
	CallerID   string
	ReceiverID string

	CallerName   string
	ReceiverName string

	CallerKind   calls.ParticipantKind
	ReceiverKind calls.ParticipantKind

	// IsCaller is true on the side that placed the call.
	IsCaller bool
	CallType calls.CallType

	// LocalUID is the numeric media uid used when joining the channel.
	LocalUID uint32
}

// LocalKind is the participant kind of whoever runs this session.
func (s Session) LocalKind() calls.ParticipantKind {
	if s.IsCaller {
		return s.CallerKind
	}
	return s.ReceiverKind
}

// LocalName is the display name of whoever runs this session.
func (s Session) LocalName() string {
	if s.IsCaller {
		return s.CallerName
	}
	return s.ReceiverName
}

// RemoteID is the id of the other participant.
func (s Session) RemoteID() string {
	if s.IsCaller {
		return s.ReceiverID
	}
	return s.CallerID
}

// Role is the log/role label for this side of the call.
func (s Session) Role() string {
	if s.IsCaller {
		return "caller"
	}
	return "receiver"
}

// Home picks the navigation target for this side.
func (s Session) Home() Destination {
	if s.LocalKind() == calls.KindCounsellor {
		return HomeCounsellor
	}
	return HomeUser
}

// Outcome summarises a finished session.
type Outcome struct {
	ChannelID       string         `json:"channel_id"`
	CallerID        string         `json:"caller_id"`
	ReceiverID      string         `json:"receiver_id"`
	CallType        calls.CallType `json:"call_type"`
	Reason          EndReason      `json:"reason"`
	Answered        bool           `json:"answered"`
	DurationSeconds int            `json:"duration_seconds"`
	EndedAt         time.Time      `json:"ended_at"`
}

// HistoryStatus maps the outcome onto the call record status vocabulary.
func (o Outcome) HistoryStatus() calls.CallStatus {
	switch {
	case o.Answered:
		return calls.CallStatusEnded
	case o.Reason == ReasonRemoteDeclined:
		return calls.CallStatusDeclined
	default:
		return calls.CallStatusMissed
	}
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Session        Session
	Status         Status
	Answered       bool
	ElapsedSeconds int
	Timer          string
	Reason         EndReason
}
