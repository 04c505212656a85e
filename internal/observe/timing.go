package observe

import "time"

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Timing records when something started and finished
type Timing struct {
	clock       Clock
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewTiming starts a timing now
func NewTiming() *Timing {
	return NewTimingWithClock(time.Now)
}

// NewTimingWithClock starts a timing on clock
func NewTimingWithClock(clock Clock) *Timing {
	return &Timing{
		clock:     clock,
		StartedAt: clock(),
	}
}

// Complete records completion time. Only the first call counts.
func (t *Timing) Complete() {
	if t.CompletedAt.IsZero() {
		t.CompletedAt = t.clock()
	}
}

// Duration returns the elapsed time, up to now if still running
func (t *Timing) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return t.clock().Sub(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}
