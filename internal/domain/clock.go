package domain

import (
	"os"
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for access dates. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// DateAccessed returns the calendar date a file was obtained, approximated by
// its modification time. Files that cannot be stat'd fall back to today.
func DateAccessed(path string) time.Time {
	t := clock.Now()
	if fi, err := os.Stat(path); err == nil {
		t = fi.ModTime()
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
