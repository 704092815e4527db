package domain

import "time"

type FailureReason string

const (
	FailureRateLimited  FailureReason = "rate_limited"
	FailureUnauthorized FailureReason = "unauthorized"
	FailureNotFound     FailureReason = "not_found"
	FailureTransport    FailureReason = "transport"
	FailureUnknown      FailureReason = "unknown"
)

// FailureDetail describes why one account could not perform its action.
type FailureDetail struct {
	Step    int
	Reason  FailureReason
	Message string
	// RetryAfter is set when the platform put the account itself on a cooldown.
	RetryAfter time.Duration
	At         time.Time
}

func (d *FailureDetail) Error() string {
	if d.Message == "" {
		return string(d.Reason)
	}
	return string(d.Reason) + ": " + d.Message
}
