package audit

import "time"

// Event is an immutable, append-only record of something that happened to a call.
//
// Invariants:
// - Events are never updated or deleted.
// - channel_id is required; every event belongs to one call attempt.
// - actor and ip capture are best-effort; do not block call flows on audit failures.
//
// Storage: table call_events (pkg/utils.Schema), INSERT only.
type Event struct {
	ID        string    `json:"id" db:"id"`
	ChannelID string    `json:"channel_id" db:"channel_id"`
	Type      EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event. Empty for events raised by
	// a session teardown.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallStarted  EventType = "call_started"
	EventTypeCallDeclined EventType = "call_declined"
	EventTypeCallFinished EventType = "call_finished"
)
