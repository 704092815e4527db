package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

type CooldownStore struct {
	db *sql.DB
}

var _ ports.CooldownStore = (*CooldownStore)(nil)

func (s *CooldownStore) Get(ctx context.Context, user domain.UserID) (domain.CooldownEntry, error) {
	var lastRequestAt, cooldownUntil string
	err := s.db.QueryRowContext(ctx, `
		SELECT last_request_at, cooldown_until FROM user_cooldowns WHERE user_id = ?
	`, string(user)).Scan(&lastRequestAt, &cooldownUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CooldownEntry{UserID: user}, nil
		}
		return domain.CooldownEntry{}, fmt.Errorf("get user cooldown: %w", err)
	}

	return domain.CooldownEntry{
		UserID:        user,
		LastRequestAt: parseTime(lastRequestAt),
		CooldownUntil: parseTime(cooldownUntil),
	}, nil
}

func (s *CooldownStore) Put(ctx context.Context, entry domain.CooldownEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_cooldowns (user_id, last_request_at, cooldown_until)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			last_request_at = excluded.last_request_at,
			cooldown_until = excluded.cooldown_until
	`, string(entry.UserID), formatTime(entry.LastRequestAt), formatTime(entry.CooldownUntil))
	if err != nil {
		return fmt.Errorf("put user cooldown: %w", err)
	}

	return nil
}
