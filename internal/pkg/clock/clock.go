package clock

import "time"

// Clock abstracts time retrieval so components can be tested with a
// controlled timeline.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by the real system time.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Fake is a Clock whose current time is set manually. Intended for tests.
type Fake struct {
	current time.Time
}

// NewFake creates a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	return f.current
}

// Set moves the fake clock to the given time.
func (f *Fake) Set(t time.Time) {
	f.current = t
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
