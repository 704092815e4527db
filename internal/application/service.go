package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

// AccountService manages the roster and the credentials behind it.
type AccountService struct {
	repo  ports.AccountRepository
	store ports.SecretStore
	clock ports.Clock
}

func NewAccountService(repo ports.AccountRepository, store ports.SecretStore, clock ports.Clock) *AccountService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AccountService{
		repo:  repo,
		store: store,
		clock: clock,
	}
}

func SessionSecretRef(id domain.AccountID) string {
	return fmt.Sprintf("engage://%s/session", id)
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

// Add creates or updates a roster entry. A new session secret is stored first and
// removed again if the roster cannot be saved.
func (s *AccountService) Add(ctx context.Context, cmd AddAccountCommand) (domain.Account, error) {
	if strings.TrimSpace(string(cmd.ID)) == "" {
		return domain.Account{}, errors.New("account id is required")
	}

	account, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Account{}, fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: cmd.ID}
	}

	if cmd.Name != "" {
		account.Name = cmd.Name
	}
	if cmd.Proxy != "" {
		account.Proxy = cmd.Proxy
	}

	storedSecret := ""
	if cmd.Session != "" {
		storedSecret = SessionSecretRef(cmd.ID)
		if err := s.store.Put(ctx, storedSecret, cmd.Session); err != nil {
			return domain.Account{}, fmt.Errorf("store session secret: %w", err)
		}
		account.SecretRef = storedSecret
	}

	if err := s.repo.Save(ctx, account); err != nil {
		if storedSecret != "" {
			if rollbackErr := s.store.Delete(ctx, storedSecret); rollbackErr != nil {
				return domain.Account{}, fmt.Errorf("save account and rollback stored secret: %w", errors.Join(err, rollbackErr))
			}
		}
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

// MarkLimited puts the account on a transport-level cooldown until the given time.
// A zero time clears the limit.
func (s *AccountService) MarkLimited(ctx context.Context, id domain.AccountID, until time.Time) error {
	return s.update(ctx, id, func(account *domain.Account) {
		account.LimitedUntil = until
	})
}

// LimitFor is MarkLimited relative to the current time.
func (s *AccountService) LimitFor(ctx context.Context, id domain.AccountID, d time.Duration) error {
	if d <= 0 {
		return s.MarkLimited(ctx, id, time.Time{})
	}
	return s.MarkLimited(ctx, id, s.clock.Now().Add(d))
}

func (s *AccountService) SetDisabled(ctx context.Context, id domain.AccountID, disabled bool) error {
	return s.update(ctx, id, func(account *domain.Account) {
		account.Disabled = disabled
	})
}

func (s *AccountService) update(ctx context.Context, id domain.AccountID, mutate func(*domain.Account)) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	mutate(&account)

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}
