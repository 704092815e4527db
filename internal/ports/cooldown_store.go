package ports

import (
	"context"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// CooldownStore returns a zero entry and no error for unknown users.
type CooldownStore interface {
	Get(ctx context.Context, user domain.UserID) (domain.CooldownEntry, error)
	Put(ctx context.Context, entry domain.CooldownEntry) error
}
