package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

// CooldownTracker enforces the per-user wait between requests. Owners are never blocked.
type CooldownTracker struct {
	store  ports.CooldownStore
	clock  ports.Clock
	window time.Duration
	owners map[domain.UserID]struct{}
}

func NewCooldownTracker(store ports.CooldownStore, clock ports.Clock, window time.Duration, owners []domain.UserID) *CooldownTracker {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if window < 0 {
		window = 0
	}

	set := make(map[domain.UserID]struct{}, len(owners))
	for _, owner := range owners {
		set[owner] = struct{}{}
	}

	return &CooldownTracker{store: store, clock: clock, window: window, owners: set}
}

func (t *CooldownTracker) Window() time.Duration {
	return t.window
}

func (t *CooldownTracker) IsOwner(user domain.UserID) bool {
	_, ok := t.owners[user]
	return ok
}

func (t *CooldownTracker) Get(ctx context.Context, user domain.UserID) (domain.CooldownEntry, error) {
	entry, err := t.store.Get(ctx, user)
	if err != nil {
		return domain.CooldownEntry{}, fmt.Errorf("get cooldown: %w", err)
	}
	return entry, nil
}

// Set records at as the user's last request. The timestamp is stored even when the window is zero.
func (t *CooldownTracker) Set(ctx context.Context, user domain.UserID, at time.Time) error {
	entry := domain.CooldownEntry{
		UserID:        user,
		LastRequestAt: at,
		CooldownUntil: at.Add(t.window),
	}
	if err := t.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// Remaining is the wait before user may submit again. It is zero for owners.
func (t *CooldownTracker) Remaining(ctx context.Context, user domain.UserID) (time.Duration, error) {
	if t.IsOwner(user) {
		return 0, nil
	}

	entry, err := t.Get(ctx, user)
	if err != nil {
		return 0, err
	}
	return entry.Remaining(t.clock.Now()), nil
}
