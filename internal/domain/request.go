package domain

import (
	"time"
)

type (
	TargetID  string
	UserID    string
	RequestID string
)

type RequestStatus string

const (
	RequestActive   RequestStatus = "active"
	RequestCooldown RequestStatus = "cooldown"
	RequestAborted  RequestStatus = "aborted"
)

// RequestEntry is the registry record for the latest request on a target.
type RequestEntry struct {
	ID          RequestID
	Target      TargetID
	Status      RequestStatus
	Kind        ActionKind
	Amount      int
	RequestedBy UserID
	Accounts    []AccountID
	// CurrentIndex is the step executing or just completed; -1 before the first step.
	CurrentIndex int
	// RetryAttempt is reserved for a retry policy and is not advanced yet.
	RetryAttempt          int
	CreatedAt             time.Time
	EstimatedCompletionAt time.Time
	Failed                map[AccountID]FailureDetail
}

func (e RequestEntry) Active() bool {
	return e.Status == RequestActive
}

// Executed is the number of steps that have been started.
func (e RequestEntry) Executed() int {
	if e.CurrentIndex < 0 {
		return 0
	}
	return e.CurrentIndex + 1
}

func (e RequestEntry) Clone() RequestEntry {
	clone := e
	clone.Accounts = append([]AccountID(nil), e.Accounts...)
	clone.Failed = make(map[AccountID]FailureDetail, len(e.Failed))
	for id, detail := range e.Failed {
		clone.Failed[id] = detail
	}
	return clone
}

// EstimateCompletion returns the moment the last of amount steps will start.
func EstimateCompletion(now time.Time, amount int, delay time.Duration) time.Time {
	if amount <= 1 {
		return now
	}
	return now.Add(time.Duration(amount-1) * delay)
}
