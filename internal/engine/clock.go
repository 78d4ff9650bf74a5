package engine

import "time"

// Clock abstracts "now" so the calendar-driven seasonal adjustment and the
// persisted timestamps are deterministic and reproducible in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
