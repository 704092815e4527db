package toml

import (
	"fmt"
	"slices"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

const rosterVersion = 1

// rosterFile is the on-disk layout of accounts.toml.
type rosterFile struct {
	Version  int             `toml:"version"`
	Accounts []accountRecord `toml:"accounts"`
}

type accountRecord struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Proxy        string `toml:"proxy,omitempty"`
	Disabled     bool   `toml:"disabled,omitempty"`
	SecretRef    string `toml:"secret_ref,omitempty"`
	LimitedUntil string `toml:"limited_until,omitempty"`
}

func newRosterFile() rosterFile {
	return rosterFile{Version: rosterVersion}
}

func (f *rosterFile) normalize() error {
	switch {
	case f.Version == 0:
		// Hand-written rosters usually omit the version.
		f.Version = rosterVersion
	case f.Version > rosterVersion:
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", f.Version, rosterVersion)
	}
	return nil
}

func (f *rosterFile) indexOf(id string) int {
	return slices.IndexFunc(f.Accounts, func(rec accountRecord) bool { return rec.ID == id })
}

// upsert replaces the record with the same id in place, or appends it.
func (f *rosterFile) upsert(rec accountRecord) {
	if i := f.indexOf(rec.ID); i >= 0 {
		f.Accounts[i] = rec
		return
	}
	f.Accounts = append(f.Accounts, rec)
}

func toRecord(account domain.Account) accountRecord {
	rec := accountRecord{
		ID:        string(account.ID),
		Name:      account.Name,
		Proxy:     account.Proxy,
		Disabled:  account.Disabled,
		SecretRef: account.SecretRef,
	}
	if !account.LimitedUntil.IsZero() {
		rec.LimitedUntil = account.LimitedUntil.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

// account decodes rec. An unparsable limited_until is treated as no limit.
func (rec accountRecord) account() domain.Account {
	account := domain.Account{
		ID:        domain.AccountID(rec.ID),
		Name:      rec.Name,
		Proxy:     rec.Proxy,
		Disabled:  rec.Disabled,
		SecretRef: rec.SecretRef,
	}
	if rec.LimitedUntil != "" {
		if until, err := time.Parse(time.RFC3339, rec.LimitedUntil); err == nil {
			account.LimitedUntil = until
		}
	}
	return account
}
