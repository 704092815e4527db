package domain

import "time"

type CooldownEntry struct {
	UserID        UserID
	LastRequestAt time.Time
	CooldownUntil time.Time
}

// Remaining is zero for unknown users and for expired cooldowns.
func (c CooldownEntry) Remaining(now time.Time) time.Duration {
	if !c.CooldownUntil.After(now) {
		return 0
	}
	return c.CooldownUntil.Sub(now)
}
