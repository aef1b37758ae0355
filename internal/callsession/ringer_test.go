package callsession

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestRinger_StopIsIdempotent(t *testing.T) {
	tone := &fakeTone{}
	r := NewRinger(clock.NewMock(), tone, time.Minute, nil, nil)

	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	require.True(t, r.Ringing())

	require.True(t, r.Stop())
	require.False(t, r.Stop())

	plays, stops := tone.counts()
	require.Equal(t, 1, plays)
	require.Equal(t, 1, stops)
}

func TestRinger_NoRestartAfterStop(t *testing.T) {
	tone := &fakeTone{}
	r := NewRinger(clock.NewMock(), tone, time.Minute, nil, nil)

	require.False(t, r.Stop())
	require.ErrorIs(t, r.Start(), ErrRingerSpent)
	require.False(t, r.Ringing())

	plays, _ := tone.counts()
	require.Equal(t, 0, plays)
}

func TestRinger_TimeoutFiresOnce(t *testing.T) {
	mock := clock.NewMock()
	tone := &fakeTone{}
	var fired atomic.Int32
	r := NewRinger(mock, tone, 60*time.Second, func() { fired.Add(1) }, nil)

	require.NoError(t, r.Start())
	mock.Add(60 * time.Second)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 2*time.Millisecond)
	require.False(t, r.Ringing())
	require.False(t, r.Stop())

	mock.Add(60 * time.Second)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
	_, stops := tone.counts()
	require.Equal(t, 1, stops)
}

func TestRinger_StopDisarmsTimeout(t *testing.T) {
	mock := clock.NewMock()
	var fired atomic.Int32
	r := NewRinger(mock, nil, 10*time.Second, func() { fired.Add(1) }, nil)

	require.NoError(t, r.Start())
	r.Stop()
	mock.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)

	require.Equal(t, int32(0), fired.Load())
}
