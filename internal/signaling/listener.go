package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"counsel-platform/internal/calls"
)

var ErrAlreadySubscribed = errors.New("signaling: listener already subscribed")

// Watcher streams record updates for a channel. RedisStore implements it.
type Watcher interface {
	Watch(ctx context.Context, channelID string) (<-chan RemoteCallRecord, func(), error)
}

type listenerState int

const (
	listenerIdle listenerState = iota
	listenerWatching
	listenerClosed
)

// Listener watches one channel for the receiver declining the call.
// It is single use: after a decline, or an Unsubscribe, it stays closed.
type Listener struct {
	watcher Watcher
	log     *slog.Logger

	mu    sync.Mutex
	state listenerState
	stop  func()

	declined sync.Once
}

func NewListener(w Watcher, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{watcher: w, log: log}
}

// Subscribe starts watching channelID. onDeclined runs at most once, on the listener's
// goroutine, when the record reaches status Declined.
func (l *Listener) Subscribe(ctx context.Context, channelID string, onDeclined func()) error {
	l.mu.Lock()
	if l.state != listenerIdle {
		l.mu.Unlock()
		return ErrAlreadySubscribed
	}
	l.state = listenerWatching
	l.mu.Unlock()

	updates, stop, err := l.watcher.Watch(ctx, channelID)
	if err != nil {
		l.mu.Lock()
		l.state = listenerClosed
		l.mu.Unlock()
		return fmt.Errorf("signaling: watch %s: %w", channelID, err)
	}

	l.mu.Lock()
	if l.state == listenerClosed {
		// Unsubscribe ran while the watch was being set up.
		l.mu.Unlock()
		stop()
		return nil
	}
	l.stop = stop
	l.mu.Unlock()

	go l.run(channelID, updates, onDeclined)
	return nil
}

func (l *Listener) run(channelID string, updates <-chan RemoteCallRecord, onDeclined func()) {
	for rec := range updates {
		if rec.Status != calls.CallStatusDeclined {
			continue
		}
		l.log.Info("call declined by receiver", "channel_id", channelID)
		l.declined.Do(func() {
			if onDeclined != nil {
				onDeclined()
			}
		})
		l.Unsubscribe()
		return
	}
}

// Unsubscribe stops the watch. Safe to call repeatedly, before Subscribe, and after the
// stream has closed.
func (l *Listener) Unsubscribe() {
	l.mu.Lock()
	l.state = listenerClosed
	stop := l.stop
	l.stop = nil
	l.mu.Unlock()

	if stop != nil {
		stop()
	}
}
