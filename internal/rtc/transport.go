// Package rtc defines the real-time media transport the call session drives.
//
// The vendor SDK lives on the participant's device. Everything here is vendor
// agnostic: a session only sees Transport, EventHandler and TokenSource.
package rtc

import (
	"context"
	"fmt"
)

type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

func (r Role) Valid() bool {
	return r == RolePublisher || r == RoleSubscriber
}

type Profile string

const (
	ProfileCommunication Profile = "communication"
	ProfileLive          Profile = "live_broadcasting"
)

// OfflineReason is why the SDK reported a remote peer offline.
type OfflineReason int

const (
	OfflineQuit OfflineReason = iota
	OfflineDropped
	OfflineBecameAudience
)

func (r OfflineReason) String() string {
	switch r {
	case OfflineQuit:
		return "quit"
	case OfflineDropped:
		return "dropped"
	case OfflineBecameAudience:
		return "became_audience"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

type JoinOptions struct {
	PublishAudio  bool `json:"publishAudio"`
	PublishVideo  bool `json:"publishVideo"`
	AutoSubscribe bool `json:"autoSubscribe"`
}

// Transport is the media engine of one participant.
//
// Rules:
// - Initialize runs once per engine, before JoinChannel.
// - LeaveChannel and Release must tolerate being called when not joined.
// - Events come back through the EventHandler the engine was bound to.
type Transport interface {
	Initialize(appID string, profile Profile) error
	JoinChannel(ctx context.Context, token, channelID string, uid uint32, opts JoinOptions) error
	LeaveChannel() error
	Release() error
	MuteLocalAudio(muted bool) error
	SetSpeakerphone(on bool) error
}

type EventHandler interface {
	OnJoinSuccess(channelID string, uid uint32)
	OnRemoteUserJoined(uid uint32)
	OnRemoteUserOffline(uid uint32, reason OfflineReason)
}

// TokenSource issues the token required to join a channel.
type TokenSource interface {
	Token(ctx context.Context, channelID string, role Role) (string, error)
}

type TokenSourceFunc func(ctx context.Context, channelID string, role Role) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context, channelID string, role Role) (string, error) {
	return f(ctx, channelID, role)
}
