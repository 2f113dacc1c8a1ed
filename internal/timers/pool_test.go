package timers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fired(tm *time.Timer, within time.Duration) bool {
	select {
	case <-tm.C:
		return true
	case <-time.After(within):
		return false
	}
}

func TestAcquireTimer(t *testing.T) {
	tm := AcquireTimer(50 * time.Millisecond)
	require.NotNil(t, tm)
	require.False(t, fired(tm, 10*time.Millisecond))
	require.True(t, fired(tm, 100*time.Millisecond))
	ReleaseTimer(tm)
}

func TestReleaseTimerStops(t *testing.T) {
	tm := AcquireTimer(30 * time.Millisecond)
	ReleaseTimer(tm)
	require.False(t, fired(tm, 50*time.Millisecond))
}

func TestReleaseAfterFire(t *testing.T) {
	tm := AcquireTimer(5 * time.Millisecond)
	require.True(t, fired(tm, 50*time.Millisecond))
	ReleaseTimer(tm)

	// The pool must hand out a clean timer afterwards.
	tm2 := AcquireTimer(5 * time.Millisecond)
	require.True(t, fired(tm2, 50*time.Millisecond))
	ReleaseTimer(tm2)
}

// The heartbeat loop releases and re-acquires its timer on every reset,
// so a recycled timer must behave like a fresh one.
func TestReacquireAfterRelease(t *testing.T) {
	for i := 0; i < 10; i++ {
		tm := AcquireTimer(5 * time.Millisecond)
		if i%2 == 0 {
			require.True(t, fired(tm, 50*time.Millisecond))
		}
		ReleaseTimer(tm)
	}
}

func TestTimersConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm := AcquireTimer(10 * time.Millisecond)
			fired(tm, 20*time.Millisecond)
			ReleaseTimer(tm)
		}()
	}
	wg.Wait()
}
