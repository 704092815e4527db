package domain

import (
	"strings"
	"time"
)

type AccountID string

// Account is one automated account from the roster.
type Account struct {
	ID       AccountID
	Name     string
	Proxy    string
	Disabled bool
	// SecretRef points to a secret-store entry holding the account session credentials.
	SecretRef string
	// LimitedUntil is a transport-level cooldown reported by the platform for this account.
	LimitedUntil time.Time
}

func (a Account) Proxied() bool {
	return strings.TrimSpace(a.Proxy) != ""
}

func (a Account) Limited(now time.Time) bool {
	return a.LimitedUntil.After(now)
}

func (a Account) DisplayName() string {
	if trimmed := strings.TrimSpace(a.Name); trimmed != "" {
		return trimmed
	}
	return string(a.ID)
}

// EligibleAccount is an account selected to act on a target for a single request.
type EligibleAccount struct {
	ID      AccountID
	Proxied bool
	Index   int
}
