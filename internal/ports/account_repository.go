package ports

import (
	"context"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// AccountRepository holds the roster of automated accounts. List preserves roster order.
type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
}
