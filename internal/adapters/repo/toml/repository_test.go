package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, accountsPath string) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("accounts.path", accountsPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func TestRepositoryRoundTripKeepsRosterOrder(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))
	limitedUntil := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	roster := []domain.Account{
		{ID: "zeta", Name: "Zeta", SecretRef: "file://zeta"},
		{ID: "alpha", Name: "Alpha", Proxy: "socks5://10.0.0.2:1080", SecretRef: "file://alpha"},
		{ID: "mid", Name: "Mid", Disabled: true, LimitedUntil: limitedUntil},
	}
	for _, account := range roster {
		require.NoError(t, repo.Save(context.Background(), account))
	}

	got, err := repo.GetByID(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, roster[1], got)
	assert.True(t, got.Proxied())

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roster, accounts)
}

func TestRepositorySaveUpdatesInPlace(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.Account{ID: "a", Name: "A"}))
	require.NoError(t, repo.Save(ctx, domain.Account{ID: "b", Name: "B"}))

	limitedUntil := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, domain.Account{ID: "a", Name: "A", LimitedUntil: limitedUntil}))

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, domain.AccountID("a"), accounts[0].ID)
	assert.True(t, accounts[0].LimitedUntil.Equal(limitedUntil))
}

func TestRepositoryReadsHandWrittenRoster(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(accountsPath, []byte(strings.Join([]string{
		"[[accounts]]",
		"id = \"acc-1\"",
		"name = \"Primary\"",
		"proxy = \"http://proxy.local:3128\"",
		"",
		"[[accounts]]",
		"id = \"acc-2\"",
		"disabled = true",
		"limited_until = \"not-a-time\"",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, accountsPath)

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "http://proxy.local:3128", accounts[0].Proxy)
	assert.True(t, accounts[1].Disabled)
	assert.True(t, accounts[1].LimitedUntil.IsZero())
	assert.Equal(t, "acc-2", accounts[1].DisplayName())
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "acc-1", Name: "Primary"}))

	accountsPath := filepath.Join(homeDir, ".engage", "accounts.toml")
	assert.Equal(t, accountsPath, repo.Path())
	info, err := os.Stat(accountsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "accounts.toml"))

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = repo.GetByID(context.Background(), "acc-1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRepositoryErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{name: "malformed toml", contents: "accounts = [", want: "decode accounts file"},
		{name: "future version", contents: "version = 999\n\naccounts = []\n", want: "unsupported accounts schema version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
			require.NoError(t, os.WriteFile(accountsPath, []byte(tt.contents), 0o600))

			_, err := newTestRepository(t, accountsPath).List(context.Background())
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRepositorySaveRejectsEmptyID(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))
	err := repo.Save(context.Background(), domain.Account{ID: "  ", Name: "blank"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "account id is required")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "accounts.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, domain.Account{ID: "acc-1", Name: "Primary"})
	require.ErrorIs(t, err, context.Canceled)

	_, err = repo.List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRepositoryConcurrentSavesAcrossInstances(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	repos := []*Repository{newTestRepository(t, accountsPath), newTestRepository(t, accountsPath)}

	const perRepoWrites = 50
	errCh := make(chan error, perRepoWrites*len(repos))
	var wg sync.WaitGroup

	for r, repo := range repos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perRepoWrites; i++ {
				id := domain.AccountID("acc-" + strconv.Itoa(r) + "-" + strconv.Itoa(i))
				errCh <- repo.Save(context.Background(), domain.Account{ID: id})
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	accounts, err := repos[0].List(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, perRepoWrites*len(repos))
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	repo := newTestRepository(t, accountsPath)

	require.NoError(t, repo.Save(context.Background(), domain.Account{ID: "acc-1", Name: "Primary"}))

	data, err := os.ReadFile(accountsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.NotContains(t, string(data), "limited_until")
}
