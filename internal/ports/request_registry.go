package ports

import (
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// RequestRegistry tracks the latest request per target. Every method is atomic per target.
type RequestRegistry interface {
	// TryRegister stores entry unless the target has a running request or one of the
	// entry's accounts is engaged in another running request. A request runs from
	// registration until Finalize, including after it was aborted.
	TryRegister(entry domain.RequestEntry) error
	Get(target domain.TargetID) (domain.RequestEntry, bool)
	List() []domain.RequestEntry
	MarkAborted(target domain.TargetID) error
	// Finalize ends the run on target and returns its final entry. Aborted entries stay aborted.
	Finalize(target domain.TargetID, status domain.RequestStatus) (domain.RequestEntry, error)
	Advance(target domain.TargetID, index int) error
	RecordFailure(target domain.TargetID, account domain.AccountID, detail domain.FailureDetail) error
	// Engaged maps every account of a running request to that request's estimated completion.
	Engaged() map[domain.AccountID]time.Time
}
