package ledger

import "time"

// Clock provides the timestamp stamped onto every record. No other
// time-dependent logic exists in the engine.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
