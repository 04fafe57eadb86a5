package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Parsing uses "now" for UGC day-of-month rollover, default expirations, and
// fallback product IDs, so deterministic tests need a fake clock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used during parsing. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
