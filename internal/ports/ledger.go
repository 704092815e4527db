package ports

import (
	"context"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// Ledger records which account performed which action on which target.
type Ledger interface {
	Insert(ctx context.Context, entry domain.LedgerEntry) error
	Remove(ctx context.Context, query domain.LedgerQuery) (int64, error)
	Find(ctx context.Context, query domain.LedgerQuery) ([]domain.LedgerEntry, error)
	// RecordStance stores entry and drops the opposing stance of the same
	// (target, account) pair in one atomic write.
	RecordStance(ctx context.Context, entry domain.LedgerEntry) error
}
