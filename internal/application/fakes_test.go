package application

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
	"github.com/stretchr/testify/mock"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mockAnyContext() interface{} {
	return mock.MatchedBy(func(context.Context) bool { return true })
}

// fakeClock jumps forward instead of sleeping, so After returns immediately.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeRoster struct {
	mu       sync.Mutex
	accounts []domain.Account
}

var _ ports.AccountRepository = (*fakeRoster)(nil)

func newFakeRoster(accounts ...domain.Account) *fakeRoster {
	return &fakeRoster{accounts: slices.Clone(accounts)}
}

func (r *fakeRoster) GetByID(_ context.Context, id domain.AccountID) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *fakeRoster) List(context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.accounts), nil
}

func (r *fakeRoster) Save(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.accounts {
		if r.accounts[i].ID == account.ID {
			r.accounts[i] = account
			return nil
		}
	}
	r.accounts = append(r.accounts, account)
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

var _ ports.Ledger = (*fakeLedger)(nil)

func (l *fakeLedger) Insert(_ context.Context, entry domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insertLocked(entry)
	return nil
}

func (l *fakeLedger) insertLocked(entry domain.LedgerEntry) {
	for _, existing := range l.entries {
		if existing.Target == entry.Target && existing.Account == entry.Account && existing.Kind == entry.Kind {
			return
		}
	}
	l.entries = append(l.entries, entry)
}

func (l *fakeLedger) Remove(_ context.Context, query domain.LedgerQuery) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	before := len(l.entries)
	l.entries = slices.DeleteFunc(l.entries, func(entry domain.LedgerEntry) bool {
		return matches(query, entry)
	})
	return int64(before - len(l.entries)), nil
}

func (l *fakeLedger) Find(_ context.Context, query domain.LedgerQuery) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var found []domain.LedgerEntry
	for _, entry := range l.entries {
		if matches(query, entry) {
			found = append(found, entry)
		}
	}
	return found, nil
}

func (l *fakeLedger) RecordStance(_ context.Context, entry domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if opposing, ok := entry.Kind.Opposing(); ok {
		l.entries = slices.DeleteFunc(l.entries, func(existing domain.LedgerEntry) bool {
			return existing.Target == entry.Target && existing.Account == entry.Account && existing.Kind == opposing
		})
	}
	l.insertLocked(entry)
	return nil
}

func matches(query domain.LedgerQuery, entry domain.LedgerEntry) bool {
	if query.Target != "" && query.Target != entry.Target {
		return false
	}
	if query.Account != "" && query.Account != entry.Account {
		return false
	}
	if len(query.Kinds) > 0 && !slices.Contains(query.Kinds, entry.Kind) {
		return false
	}
	return true
}

var errNoSuchItem = errors.New("no such item")

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, target domain.TargetID) (ports.ResourceHandle, error) {
	if target == "missing" {
		return ports.ResourceHandle{}, errNoSuchItem
	}
	return ports.ResourceHandle{Target: target, Ref: "ref-" + string(target)}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []domain.Report
}

func (n *recordingNotifier) Notify(_ context.Context, report domain.Report) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

func (n *recordingNotifier) Reports() []domain.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.reports)
}

func roster(ids ...domain.AccountID) []domain.Account {
	accounts := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, domain.Account{ID: id, Name: "Account " + string(id)})
	}
	return accounts
}
