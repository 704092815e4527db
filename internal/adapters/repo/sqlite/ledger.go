package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

type Ledger struct {
	db *sql.DB
}

var _ ports.Ledger = (*Ledger)(nil)

// Insert is idempotent: a second insert of the same (target, account, kind) is ignored.
func (l *Ledger) Insert(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (target, account, kind, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (target, account, kind) DO NOTHING
	`, string(entry.Target), string(entry.Account), string(entry.Kind), formatTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return nil
}

func (l *Ledger) Remove(ctx context.Context, query domain.LedgerQuery) (int64, error) {
	where, args := whereClause(query)
	if where == "" {
		return 0, fmt.Errorf("remove ledger entries: refusing to remove without a filter")
	}

	result, err := l.db.ExecContext(ctx, "DELETE FROM ledger_entries"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("remove ledger entries: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove ledger entries: %w", err)
	}

	return removed, nil
}

func (l *Ledger) Find(ctx context.Context, query domain.LedgerQuery) ([]domain.LedgerEntry, error) {
	where, args := whereClause(query)

	rows, err := l.db.QueryContext(ctx,
		"SELECT target, account, kind, recorded_at FROM ledger_entries"+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("find ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var target, account, kind, recordedAt string
		if err := rows.Scan(&target, &account, &kind, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, domain.LedgerEntry{
			Target:    domain.TargetID(target),
			Account:   domain.AccountID(account),
			Kind:      domain.ActionKind(kind),
			Timestamp: parseTime(recordedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

// RecordStance writes entry and deletes the opposing stance inside one transaction,
// so both stances are never visible at the same time.
func (l *Ledger) RecordStance(ctx context.Context, entry domain.LedgerEntry) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record stance: begin tx: %w", err)
	}
	defer tx.Rollback()

	if opposing, ok := entry.Kind.Opposing(); ok {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM ledger_entries WHERE target = ? AND account = ? AND kind = ?
		`, string(entry.Target), string(entry.Account), string(opposing)); err != nil {
			return fmt.Errorf("record stance: remove opposing: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (target, account, kind, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (target, account, kind) DO UPDATE SET recorded_at = excluded.recorded_at
	`, string(entry.Target), string(entry.Account), string(entry.Kind), formatTime(entry.Timestamp)); err != nil {
		return fmt.Errorf("record stance: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record stance: commit: %w", err)
	}

	return nil
}

func whereClause(query domain.LedgerQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if query.Target != "" {
		conditions = append(conditions, "target = ?")
		args = append(args, string(query.Target))
	}
	if query.Account != "" {
		conditions = append(conditions, "account = ?")
		args = append(args, string(query.Account))
	}
	if len(query.Kinds) > 0 {
		placeholders := make([]string, 0, len(query.Kinds))
		for _, kind := range query.Kinds {
			placeholders = append(placeholders, "?")
			args = append(args, string(kind))
		}
		conditions = append(conditions, "kind IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}
