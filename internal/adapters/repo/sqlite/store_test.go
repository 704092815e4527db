package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "engage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "engage.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Ledger().Insert(context.Background(), domain.LedgerEntry{Target: "t", Account: "a", Kind: domain.ActionComment}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.Ledger().Find(context.Background(), domain.LedgerQuery{Target: "t"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedgerInsertIgnoresDuplicates(t *testing.T) {
	t.Parallel()

	ledger := createTestStore(t).Ledger()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := domain.LedgerEntry{Target: "item-1", Account: "a", Kind: domain.ActionComment, Timestamp: at}

	require.NoError(t, ledger.Insert(ctx, entry))
	require.NoError(t, ledger.Insert(ctx, entry))

	entries, err := ledger.Find(ctx, domain.LedgerQuery{Target: "item-1", Kinds: []domain.ActionKind{domain.ActionComment}})
	require.NoError(t, err)
	assert.Equal(t, []domain.LedgerEntry{entry}, entries)
}

func TestLedgerRecordStanceReplacesOpposingStance(t *testing.T) {
	t.Parallel()

	ledger := createTestStore(t).Ledger()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.RecordStance(ctx, domain.LedgerEntry{Target: "item-1", Account: "a", Kind: domain.ActionUpvote, Timestamp: at}))
	require.NoError(t, ledger.RecordStance(ctx, domain.LedgerEntry{Target: "item-1", Account: "b", Kind: domain.ActionUpvote, Timestamp: at}))
	require.NoError(t, ledger.RecordStance(ctx, domain.LedgerEntry{Target: "item-1", Account: "a", Kind: domain.ActionDownvote, Timestamp: at.Add(time.Minute)}))

	entries, err := ledger.Find(ctx, domain.LedgerQuery{Target: "item-1", Account: "a"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionDownvote, entries[0].Kind)
	assert.Equal(t, at.Add(time.Minute), entries[0].Timestamp)

	others, err := ledger.Find(ctx, domain.LedgerQuery{Target: "item-1", Account: "b"})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, domain.ActionUpvote, others[0].Kind)
}

func TestLedgerRecordStanceKeepsCommentsAlongsideVotes(t *testing.T) {
	t.Parallel()

	ledger := createTestStore(t).Ledger()
	ctx := context.Background()

	require.NoError(t, ledger.RecordStance(ctx, domain.LedgerEntry{Target: "item-1", Account: "a", Kind: domain.ActionComment}))
	require.NoError(t, ledger.RecordStance(ctx, domain.LedgerEntry{Target: "item-1", Account: "a", Kind: domain.ActionUpvote}))

	entries, err := ledger.Find(ctx, domain.LedgerQuery{Target: "item-1", Account: "a"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLedgerRemove(t *testing.T) {
	t.Parallel()

	ledger := createTestStore(t).Ledger()
	ctx := context.Background()

	require.NoError(t, ledger.Insert(ctx, domain.LedgerEntry{Target: "item-1", Account: "a", Kind: domain.ActionUpvote}))
	require.NoError(t, ledger.Insert(ctx, domain.LedgerEntry{Target: "item-2", Account: "a", Kind: domain.ActionUpvote}))

	_, err := ledger.Remove(ctx, domain.LedgerQuery{})
	require.Error(t, err)

	removed, err := ledger.Remove(ctx, domain.LedgerQuery{Target: "item-1", Kinds: []domain.ActionKind{domain.ActionUpvote, domain.ActionDownvote}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := ledger.Find(ctx, domain.LedgerQuery{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, domain.TargetID("item-2"), remaining[0].Target)
}

func TestCooldownStoreRoundTrip(t *testing.T) {
	t.Parallel()

	cooldowns := createTestStore(t).Cooldowns()
	ctx := context.Background()

	unknown, err := cooldowns.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CooldownEntry{UserID: "user-1"}, unknown)

	entry := domain.CooldownEntry{
		UserID:        "user-1",
		LastRequestAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CooldownUntil: time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC),
	}
	require.NoError(t, cooldowns.Put(ctx, entry))

	entry.CooldownUntil = entry.CooldownUntil.Add(time.Minute)
	require.NoError(t, cooldowns.Put(ctx, entry))

	got, err := cooldowns.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}
