package httpapi

import (
	"context"
	"time"

	"counsel-platform/internal/calls"
	"counsel-platform/internal/identity"
	"counsel-platform/internal/push"
	"counsel-platform/internal/signaling"
)

// CallStore is the remote call record store. *signaling.RedisStore implements it.
type CallStore interface {
	signaling.Watcher
	Create(ctx context.Context, rec signaling.RemoteCallRecord) error
	Get(ctx context.Context, channelID string) (signaling.RemoteCallRecord, error)
	SetStatus(ctx context.Context, channelID string, status calls.CallStatus) (signaling.RemoteCallRecord, error)
	MarkMissedSeen(ctx context.Context, channelID string) error
	SetPresence(ctx context.Context, channelID, receiverID, callerID string, ttl time.Duration) error
	ClearPresence(ctx context.Context, channelID, receiverID string) error
}

// History is the call history repository. *calls.Repository implements it.
type History interface {
	Insert(ctx context.Context, c calls.Call) (calls.Call, error)
	Finish(ctx context.Context, channelID string, status calls.CallStatus, durationSeconds int, endedAt time.Time) (bool, error)
	ListForParticipant(ctx context.Context, participantID string, from, to time.Time, limit int) ([]calls.Call, error)
}

// Directory serves the identity resources. *identity.PostgresDirectory implements it.
type Directory interface {
	Get(ctx context.Context, kind calls.ParticipantKind, id string) (identity.Profile, error)
}

// Resolver turns participant ids into display profiles for call sessions, never failing.
// *identity.Client implements it; DirectoryResolver adapts a Directory.
type Resolver interface {
	Resolve(ctx context.Context, accessToken, id string) identity.Profile
}

type Subscriptions interface {
	Save(ctx context.Context, userID string, sub push.Subscription) error
}

// Locker guards a receiver against concurrent incoming calls.
type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}
