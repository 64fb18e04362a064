// Package clock lets the slideshow and the catalog watcher run against
// real time in production and a manually advanced clock in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time

	// AfterFunc calls f once after d. Real clocks call f on its own
	// goroutine; the fake calls it from Advance.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the call. It reports false if f already ran or the timer
// was stopped before.
func (t *Timer) Stop() bool { return t.stop() }

type Ticker struct {
	// C has capacity 1. Ticks are dropped while the reader is behind.
	C <-chan time.Time

	stop func()
}

func (t *Ticker) Stop() { t.stop() }

// Real returns the Clock backed by package time.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
