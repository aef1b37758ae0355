package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records the call event trail.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to participants.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ChannelID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCallStarted records the caller placing a call.
func (s *Service) LogCallStarted(ctx context.Context, channelID, actorUserID, actorRole, ip, receiverID string) error {
	return s.Append(ctx, Event{
		ChannelID:   channelID,
		Type:        EventTypeCallStarted,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "call to " + receiverID,
	})
}

// LogCallDeclined records the receiver rejecting a ringing call.
func (s *Service) LogCallDeclined(ctx context.Context, channelID, actorUserID, actorRole, ip string) error {
	return s.Append(ctx, Event{
		ChannelID:   channelID,
		Type:        EventTypeCallDeclined,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "call declined",
	})
}

// LogCallFinished records a session teardown. metadata carries the session outcome JSON.
func (s *Service) LogCallFinished(ctx context.Context, channelID, reason, metadata string) error {
	return s.Append(ctx, Event{
		ChannelID: channelID,
		Type:      EventTypeCallFinished,
		Message:   reason,
		Metadata:  metadata,
	})
}
