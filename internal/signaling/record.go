// Package signaling holds the remote call record both participants' clients watch,
// and the listener that turns record updates into call session events.
package signaling

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"counsel-platform/internal/calls"
)

var (
	ErrRecordNotFound = errors.New("signaling: call record not found")
	ErrInvalidRecord  = errors.New("signaling: invalid call record")
)

// RemoteCallRecord is the shared record for one channel. Both clients write it;
// the call session only reads Status.
type RemoteCallRecord struct {
	ChannelID            string           `json:"channelId"`
	Status               calls.CallStatus `json:"status"`
	MissedCallStatusSeen bool             `json:"missedCallStatusSeen"`

	CallerID   string         `json:"callerId,omitempty"`
	ReceiverID string         `json:"receiverId,omitempty"`
	CallType   calls.CallType `json:"callType,omitempty"`
	CreatedAt  time.Time      `json:"createdAt,omitempty"`
}

// Terminal reports whether the record carries a status that ends the call.
func (r RemoteCallRecord) Terminal() bool {
	return r.Status.Final()
}

const (
	fieldStatus     = "status"
	fieldMissedSeen = "missedCallStatusSeen"
	fieldCaller     = "callerId"
	fieldReceiver   = "receiverId"
	fieldCallType   = "callType"
	fieldCreatedAt  = "createdAt"
)

// fields flattens the record into hash field/value pairs in a fixed order.
func (r RemoteCallRecord) fields() []any {
	return []any{
		fieldStatus, string(r.Status),
		fieldMissedSeen, strconv.FormatBool(r.MissedCallStatusSeen),
		fieldCaller, r.CallerID,
		fieldReceiver, r.ReceiverID,
		fieldCallType, string(r.CallType),
		fieldCreatedAt, r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// recordFromHash rebuilds a record from a hash. A hash without a recognised status
// is treated as absent.
func recordFromHash(channelID string, h map[string]string) (RemoteCallRecord, bool) {
	status := calls.CallStatus(h[fieldStatus])
	if !status.Valid() {
		return RemoteCallRecord{}, false
	}
	rec := RemoteCallRecord{
		ChannelID:  channelID,
		Status:     status,
		CallerID:   h[fieldCaller],
		ReceiverID: h[fieldReceiver],
		CallType:   calls.CallType(h[fieldCallType]),
	}
	rec.MissedCallStatusSeen, _ = strconv.ParseBool(h[fieldMissedSeen])
	if ts, err := time.Parse(time.RFC3339, h[fieldCreatedAt]); err == nil {
		rec.CreatedAt = ts
	}
	return rec, true
}

func decodeRecord(payload string) (RemoteCallRecord, error) {
	var rec RemoteCallRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return RemoteCallRecord{}, ErrInvalidRecord
	}
	if !rec.Status.Valid() {
		return RemoteCallRecord{}, ErrInvalidRecord
	}
	return rec, nil
}
