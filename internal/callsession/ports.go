package callsession

import (
	"context"

	"counsel-platform/internal/push"
	"counsel-platform/internal/rtc"
)

// Tone plays the local ringback tone. Play loops until Stop.
type Tone interface {
	Play() error
	Stop() error
}

// SignalListener watches the remote call record for a terminal decline.
type SignalListener interface {
	Subscribe(ctx context.Context, channelID string, onDeclined func()) error
	Unsubscribe()
}

// PresenceStore owns the presence sub-record the receiver's client rings on.
type PresenceStore interface {
	ClearPresence(ctx context.Context, channelID, receiverID string) error
}

// Notifier delivers the cancellation push to the remote participant.
type Notifier interface {
	SendCancelCallNotification(ctx context.Context, n push.CancelCall) error
}

// HistoryRecorder persists the finished call. Optional.
type HistoryRecorder interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}

// Host is the UI layer hosting the call screen.
type Host interface {
	StatusChanged(s Status)
	TimerTick(elapsedSeconds int, formatted string)
	Navigate(dest Destination, o Outcome)
}

// Deps are the collaborators of a Controller. Transport, Tokens and Host are required.
type Deps struct {
	AppID string

	Transport rtc.Transport
	Tokens    rtc.TokenSource
	Tone      Tone
	Listener  SignalListener
	Presence  PresenceStore
	Notifier  Notifier
	Recorder  HistoryRecorder
	Host      Host
}

type noopTone struct{}

func (noopTone) Play() error { return nil }
func (noopTone) Stop() error { return nil }

type noopListener struct{}

func (noopListener) Subscribe(context.Context, string, func()) error { return nil }
func (noopListener) Unsubscribe()                                    {}
