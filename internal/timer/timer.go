// Package timer provides a coarse clock. Deadlines are set on every received portion
// of data, so calling time.Now() each time isn't worth it.
package timer

import (
	"sync/atomic"
	"time"
)

// Resolution is the frequency at which the clock is updated. It's precise enough for
// setting I/O deadlines.
const Resolution = 500 * time.Millisecond

var millis = new(atomic.Int64)

// Now returns the current time, rounded to the Resolution at most.
func Now() time.Time {
	return time.UnixMilli(millis.Load())
}

func init() {
	// the clock must be valid even before the goroutine is scheduled for the first time.
	millis.Store(time.Now().UnixMilli())

	go func() {
		ticker := time.NewTicker(Resolution)
		for now := range ticker.C {
			millis.Store(now.UnixMilli())
		}
	}()
}
