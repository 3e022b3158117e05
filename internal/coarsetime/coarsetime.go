// Package coarsetime provides cheap, coarse-grained timestamps for
// bookkeeping on the job hot path (last-used stamps, idle accounting),
// where 50ms of slack is irrelevant and time.Now() per job is not free.
package coarsetime

import (
	"sync/atomic"
	"time"
)

const resolution = 50 * time.Millisecond

var now atomic.Value

func init() {
	now.Store(time.Now())

	ticker := time.NewTicker(resolution)
	go func() {
		for range ticker.C {
			now.Store(time.Now())
		}
	}()
}

// Now returns the current time with up to 50ms of staleness.
func Now() time.Time {
	return now.Load().(time.Time)
}

// Since reports the time elapsed since t, at the same resolution.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
