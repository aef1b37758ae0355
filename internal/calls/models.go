package calls

import "time"

// Call is one row of call history.
//
// The live status of a ringing call lives in the remote call record; this row is
// written when the call is placed and finalised once the session ends.
type Call struct {
	CallID    string `json:"call_id" db:"call_id"`
	ChannelID string `json:"channel_id" db:"channel_id"`

	CallerID   string `json:"caller_id" db:"caller_id"`
	ReceiverID string `json:"receiver_id" db:"receiver_id"`

	CallType CallType   `json:"call_type" db:"call_type"`
	Status   CallStatus `json:"status" db:"status"`

	// DurationSeconds counts from the moment the remote peer joined.
	DurationSeconds int `json:"duration" db:"duration"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// CallStatus is shared by the remote call record and the history row.
// The string values are what mobile clients read from the record.
type CallStatus string

const (
	CallStatusCalling  CallStatus = "Calling"
	CallStatusMissed   CallStatus = "Missed Call"
	CallStatusDeclined CallStatus = "Declined"
	CallStatusActive   CallStatus = "Active"
	CallStatusEnded    CallStatus = "Ended"
)

func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusCalling, CallStatusMissed, CallStatusDeclined, CallStatusActive, CallStatusEnded:
		return true
	default:
		return false
	}
}

// Final reports whether no further status change is expected.
func (s CallStatus) Final() bool {
	return s == CallStatusMissed || s == CallStatusDeclined || s == CallStatusEnded
}

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

func (t CallType) Valid() bool { return t == CallTypeAudio || t == CallTypeVideo }

func (t CallType) HasVideo() bool { return t == CallTypeVideo }

// ParticipantKind distinguishes platform users from counsellors.
type ParticipantKind string

const (
	KindUser       ParticipantKind = "user"
	KindCounsellor ParticipantKind = "counsellor"
)

func (k ParticipantKind) Valid() bool { return k == KindUser || k == KindCounsellor }
