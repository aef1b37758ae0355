package callsession

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestFormatElapsed(t *testing.T) {
	cases := map[int]string{
		-4:   "00:00",
		0:    "00:00",
		9:    "00:09",
		61:   "01:01",
		3600: "60:00",
	}
	for in, want := range cases {
		if got := FormatElapsed(in); got != want {
			t.Fatalf("FormatElapsed(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTimer_TicksAndResets(t *testing.T) {
	mock := clock.NewMock()
	var mu sync.Mutex
	var published []string
	tm := NewTimer(mock, func(_ int, formatted string) {
		mu.Lock()
		published = append(published, formatted)
		mu.Unlock()
	})

	tm.Start()
	tm.Start()
	require.True(t, tm.Running())

	for i := 1; i <= 2; i++ {
		mock.Add(time.Second)
		want := i
		require.Eventually(t, func() bool { return tm.Elapsed() == want }, time.Second, 2*time.Millisecond)
	}
	require.Equal(t, "00:02", tm.Formatted())

	tm.Stop()
	tm.Stop()
	require.False(t, tm.Running())
	require.Equal(t, 0, tm.Elapsed())

	mock.Add(3 * time.Second)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 0, tm.Elapsed())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"00:01", "00:02"}, published)
}

func TestTimer_StopBeforeStartKeepsItStopped(t *testing.T) {
	mock := clock.NewMock()
	ticks := 0
	var mu sync.Mutex
	tm := NewTimer(mock, func(int, string) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	tm.Stop()
	tm.Start()
	require.False(t, tm.Running())

	mock.Add(3 * time.Second)
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 0, ticks)
}
