// Package memory holds process-local stores whose state does not outlive the process.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

// RequestRegistry keeps one entry per target. A single mutex guards the map because
// registration must also check account engagement across every running target.
type RequestRegistry struct {
	mu      sync.RWMutex
	entries map[domain.TargetID]*record
}

// record tracks whether the run behind an entry has finished. An aborted entry keeps
// its target and accounts until the step in flight settles and Finalize is called.
type record struct {
	entry   domain.RequestEntry
	settled bool
}

func (r *record) running() bool {
	return !r.settled
}

var _ ports.RequestRegistry = (*RequestRegistry)(nil)

func NewRequestRegistry() *RequestRegistry {
	return &RequestRegistry{entries: map[domain.TargetID]*record{}}
}

func (r *RequestRegistry) TryRegister(entry domain.RequestEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.entries[entry.Target]; ok && current.running() {
		return domain.ErrTargetBusy
	}

	wanted := make(map[domain.AccountID]struct{}, len(entry.Accounts))
	for _, id := range entry.Accounts {
		wanted[id] = struct{}{}
	}
	for target, current := range r.entries {
		if target == entry.Target || !current.running() {
			continue
		}
		for _, id := range current.entry.Accounts {
			if _, ok := wanted[id]; ok {
				return domain.ErrAccountsEngaged
			}
		}
	}

	stored := entry.Clone()
	stored.Status = domain.RequestActive
	r.entries[entry.Target] = &record{entry: stored}
	return nil
}

func (r *RequestRegistry) Get(target domain.TargetID) (domain.RequestEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.entries[target]
	if !ok {
		return domain.RequestEntry{}, false
	}
	return rec.entry.Clone(), true
}

func (r *RequestRegistry) List() []domain.RequestEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.RequestEntry, 0, len(r.entries))
	for _, rec := range r.entries {
		entries = append(entries, rec.entry.Clone())
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Target < entries[j].Target
	})
	return entries
}

func (r *RequestRegistry) MarkAborted(target domain.TargetID) error {
	return r.mutateActive(target, func(entry *domain.RequestEntry) {
		entry.Status = domain.RequestAborted
	})
}

// Finalize settles the run and returns the final entry. An aborted entry keeps its status.
func (r *RequestRegistry) Finalize(target domain.TargetID, status domain.RequestStatus) (domain.RequestEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.entries[target]
	if !ok {
		return domain.RequestEntry{}, domain.ErrRequestNotFound
	}
	if rec.entry.Status != domain.RequestAborted {
		rec.entry.Status = status
	}
	rec.settled = true
	return rec.entry.Clone(), nil
}

func (r *RequestRegistry) Advance(target domain.TargetID, index int) error {
	return r.mutateActive(target, func(entry *domain.RequestEntry) {
		entry.CurrentIndex = index
	})
}

// RecordFailure also applies to aborted entries: a step already in flight when the
// abort landed still reports its outcome.
func (r *RequestRegistry) RecordFailure(target domain.TargetID, account domain.AccountID, detail domain.FailureDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.entries[target]
	if !ok || rec.settled {
		return domain.ErrRequestNotFound
	}
	if rec.entry.Failed == nil {
		rec.entry.Failed = map[domain.AccountID]domain.FailureDetail{}
	}
	rec.entry.Failed[account] = detail
	return nil
}

func (r *RequestRegistry) Engaged() map[domain.AccountID]time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engaged := map[domain.AccountID]time.Time{}
	for _, rec := range r.entries {
		if !rec.running() {
			continue
		}
		for _, id := range rec.entry.Accounts {
			engaged[id] = rec.entry.EstimatedCompletionAt
		}
	}
	return engaged
}

func (r *RequestRegistry) mutateActive(target domain.TargetID, mutate func(*domain.RequestEntry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.entries[target]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if !rec.entry.Active() {
		return domain.ErrRequestNotActive
	}
	mutate(&rec.entry)
	return nil
}
