package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tomlrepo "github.com/bnema/engagement-accounts-cli/internal/adapters/repo/toml"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports/mocks"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountServiceAddStoresSession(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, mocks.NewMockClock(t))

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(domain.Account{}, domain.ErrAccountNotFound)
	store.EXPECT().Put(mockAnyContext(), "engage://acc-1/session", "cookie=abc").Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:        "acc-1",
		Name:      "Primary",
		Proxy:     "socks5://10.0.0.1:1080",
		SecretRef: "engage://acc-1/session",
	}).Return(nil)

	account, err := service.Add(context.Background(), AddAccountCommand{
		ID:      "acc-1",
		Name:    "Primary",
		Proxy:   "socks5://10.0.0.1:1080",
		Session: "cookie=abc",
	})
	require.NoError(t, err)
	assert.True(t, account.Proxied())
}

func TestAccountServiceAddRollsBackSecretWhenSaveFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, mocks.NewMockClock(t))

	saveErr := errors.New("disk full")
	existing := domain.Account{ID: "acc-1", Name: "Primary"}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(existing, nil)
	store.EXPECT().Put(mockAnyContext(), "engage://acc-1/session", "cookie=new").Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "acc-1", Name: "Primary", SecretRef: "engage://acc-1/session"}).Return(saveErr)
	store.EXPECT().Delete(mockAnyContext(), "engage://acc-1/session").Return(nil)

	_, err := service.Add(context.Background(), AddAccountCommand{ID: "acc-1", Session: "cookie=new"})
	require.ErrorIs(t, err, saveErr)
}

func TestAccountServiceAddReportsRollbackFailure(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewAccountService(repo, store, mocks.NewMockClock(t))

	saveErr := errors.New("disk full")
	deleteErr := errors.New("store locked")
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(domain.Account{ID: "acc-1"}, nil)
	store.EXPECT().Put(mockAnyContext(), "engage://acc-1/session", "cookie").Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "acc-1", SecretRef: "engage://acc-1/session"}).Return(saveErr)
	store.EXPECT().Delete(mockAnyContext(), "engage://acc-1/session").Return(deleteErr)

	_, err := service.Add(context.Background(), AddAccountCommand{ID: "acc-1", Session: "cookie"})
	require.ErrorIs(t, err, saveErr)
	require.ErrorIs(t, err, deleteErr)
	assert.ErrorContains(t, err, "rollback stored secret")
}

func TestAccountServiceAddRequiresID(t *testing.T) {
	service := NewAccountService(mocks.NewMockAccountRepository(t), mocks.NewMockSecretStore(t), nil)

	_, err := service.Add(context.Background(), AddAccountCommand{Name: "nameless"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "account id is required")
}

func TestAccountServiceLimitFor(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	clock := mocks.NewMockClock(t)
	service := NewAccountService(repo, mocks.NewMockSecretStore(t), clock)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(now)
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("acc-1")).Return(domain.Account{ID: "acc-1"}, nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "acc-1", LimitedUntil: now.Add(2 * time.Hour)}).Return(nil)

	require.NoError(t, service.LimitFor(context.Background(), "acc-1", 2*time.Hour))
}

func TestAccountServiceUpdateMissingAccount(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewAccountService(repo, mocks.NewMockSecretStore(t), nil)

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("ghost")).Return(domain.Account{}, domain.ErrAccountNotFound)

	err := service.SetDisabled(context.Background(), "ghost", true)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountServiceWithTOMLRoster(t *testing.T) {
	config := viper.New()
	config.Set("accounts.path", filepath.Join(t.TempDir(), "accounts.toml"))
	repo, err := tomlrepo.NewRepository(config)
	require.NoError(t, err)

	service := NewAccountService(repo, mocks.NewMockSecretStore(t), nil)
	ctx := context.Background()

	_, err = service.Add(ctx, AddAccountCommand{ID: "acc-1", Name: "Primary"})
	require.NoError(t, err)
	_, err = service.Add(ctx, AddAccountCommand{ID: "acc-2", Name: "Backup"})
	require.NoError(t, err)

	until := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, service.MarkLimited(ctx, "acc-2", until))
	require.NoError(t, service.SetDisabled(ctx, "acc-1", true))

	accounts, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts[0].Disabled)
	assert.True(t, accounts[1].LimitedUntil.Equal(until))

	require.NoError(t, service.MarkLimited(ctx, "acc-2", time.Time{}))
	account, err := service.Get(ctx, "acc-2")
	require.NoError(t, err)
	assert.True(t, account.LimitedUntil.IsZero())
}
