package timers

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// AcquireTimer returns a timer from the pool set to fire after d.
// The timer must be returned with ReleaseTimer after use.
func AcquireTimer(d time.Duration) *time.Timer {
	v := timerPool.Get()
	if v == nil {
		return time.NewTimer(d)
	}
	tm := v.(*time.Timer)
	if tm.Reset(d) {
		panic("timers: acquired an active timer from the pool")
	}
	return tm
}

// ReleaseTimer stops the timer and puts it back to the pool.
func ReleaseTimer(tm *time.Timer) {
	if !tm.Stop() {
		// Timer may have fired already, drain the channel so the
		// next AcquireTimer gets a clean timer.
		select {
		case <-tm.C:
		default:
		}
	}
	timerPool.Put(tm)
}
