package signaling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"counsel-platform/internal/calls"

	"github.com/stretchr/testify/require"
)

type fakeWatcher struct {
	mu      sync.Mutex
	ch      chan RemoteCallRecord
	stops   int
	err     error
	stopped chan struct{}
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{ch: make(chan RemoteCallRecord, 8), stopped: make(chan struct{})}
}

func (w *fakeWatcher) Watch(ctx context.Context, channelID string) (<-chan RemoteCallRecord, func(), error) {
	if w.err != nil {
		return nil, nil, w.err
	}
	var once sync.Once
	return w.ch, func() {
		w.mu.Lock()
		w.stops++
		w.mu.Unlock()
		once.Do(func() { close(w.stopped) })
	}, nil
}

func (w *fakeWatcher) stopCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stops
}

func TestListener_DeclinedFiresOnceAndUnsubscribes(t *testing.T) {
	w := newFakeWatcher()
	l := NewListener(w, nil)

	var fired atomic.Int32
	require.NoError(t, l.Subscribe(context.Background(), "abc", func() { fired.Add(1) }))

	w.ch <- RemoteCallRecord{ChannelID: "abc", Status: calls.CallStatusCalling}
	w.ch <- RemoteCallRecord{ChannelID: "abc", Status: calls.CallStatusDeclined}
	w.ch <- RemoteCallRecord{ChannelID: "abc", Status: calls.CallStatusDeclined}

	select {
	case <-w.stopped:
	case <-time.After(time.Second):
		t.Fatalf("expected listener to cancel its subscription")
	}
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestListener_IgnoresNonTerminalUpdates(t *testing.T) {
	w := newFakeWatcher()
	l := NewListener(w, nil)

	var fired atomic.Int32
	require.NoError(t, l.Subscribe(context.Background(), "abc", func() { fired.Add(1) }))

	w.ch <- RemoteCallRecord{ChannelID: "abc", Status: calls.CallStatusCalling}
	w.ch <- RemoteCallRecord{ChannelID: "abc", Status: calls.CallStatusActive}
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, int32(0), fired.Load())
	require.Equal(t, 0, w.stopCount())
	l.Unsubscribe()
}

func TestListener_UnsubscribeIsIdempotent(t *testing.T) {
	w := newFakeWatcher()
	l := NewListener(w, nil)

	l.Unsubscribe() // before subscribe
	require.ErrorIs(t, l.Subscribe(context.Background(), "abc", nil), ErrAlreadySubscribed)

	l2 := NewListener(w, nil)
	require.NoError(t, l2.Subscribe(context.Background(), "abc", nil))
	l2.Unsubscribe()
	l2.Unsubscribe()
	close(w.ch) // stream closed after unsubscribe
	l2.Unsubscribe()

	require.Equal(t, 1, w.stopCount())
}

func TestListener_WatchErrorIsReturned(t *testing.T) {
	w := newFakeWatcher()
	w.err = errors.New("redis down")
	l := NewListener(w, nil)

	err := l.Subscribe(context.Background(), "abc", func() {})
	require.Error(t, err)
	l.Unsubscribe()
}
