package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

// minimumWait is reported for engaged accounts whose request is past its estimate.
const minimumWait = time.Second

// Selection is the outcome of an eligibility pass.
type Selection struct {
	// Amount is the resolved request size; for "all" it is the number eligible now.
	Amount   int
	Accounts []domain.EligibleAccount
	// NextAvailable is non-zero when more accounts become eligible later.
	NextAvailable time.Duration
}

// Short reports whether fewer accounts were selected than the resolved amount.
func (s Selection) Short() bool {
	return len(s.Accounts) < s.Amount
}

type AccountPool struct {
	accounts ports.AccountRepository
	ledger   ports.Ledger
	registry ports.RequestRegistry
	clock    ports.Clock
}

func NewAccountPool(accounts ports.AccountRepository, ledger ports.Ledger, registry ports.RequestRegistry, clock ports.Clock) *AccountPool {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AccountPool{accounts: accounts, ledger: ledger, registry: registry, clock: clock}
}

// Select returns the accounts, in roster order, that may perform kind on target right now.
// Accounts that are disabled or already recorded in the ledger for (target, kind) never
// return. Limited and engaged accounts return at a known time and feed NextAvailable.
func (p *AccountPool) Select(ctx context.Context, amount domain.AmountSpec, target domain.TargetID, kind domain.ActionKind) (Selection, error) {
	roster, err := p.accounts.List(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("list accounts: %w", err)
	}

	done, err := p.ledger.Find(ctx, domain.LedgerQuery{Target: target, Kinds: []domain.ActionKind{kind}})
	if err != nil {
		return Selection{}, fmt.Errorf("find ledger entries: %w", err)
	}
	acted := make(map[domain.AccountID]struct{}, len(done))
	for _, entry := range done {
		acted[entry.Account] = struct{}{}
	}

	engaged := p.registry.Engaged()
	now := p.clock.Now()

	var (
		eligible []domain.EligibleAccount
		returns  []time.Time
	)
	for index, account := range roster {
		if account.Disabled {
			continue
		}
		if _, ok := acted[account.ID]; ok {
			continue
		}

		eta, isEngaged := engaged[account.ID]
		limited := account.Limited(now)
		if isEngaged || limited {
			availableAt := now
			if limited {
				availableAt = account.LimitedUntil
			}
			if isEngaged && eta.After(availableAt) {
				availableAt = eta
			}
			returns = append(returns, availableAt)
			continue
		}

		eligible = append(eligible, domain.EligibleAccount{
			ID:      account.ID,
			Proxied: account.Proxied(),
			Index:   index,
		})
	}

	selection := Selection{Amount: amount.N}
	if amount.All {
		selection.Amount = len(eligible)
	}

	if selection.Amount > 0 && len(eligible) >= selection.Amount {
		selection.Accounts = eligible[:selection.Amount]
		return selection, nil
	}

	selection.Accounts = eligible
	if len(returns) > 0 {
		slices.SortFunc(returns, func(a, b time.Time) int { return a.Compare(b) })
		missing := min(max(selection.Amount-len(eligible), 1), len(returns))
		selection.NextAvailable = max(returns[missing-1].Sub(now), minimumWait)
	}

	return selection, nil
}
