package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
	"github.com/google/uuid"
)

const maxRegisterAttempts = 3

// Limit bounds the amount a single request may ask for.
type Limit struct {
	// Max applies to regular users. Zero restricts the action kind to owners.
	Max int
	// OwnerMax applies to owners. Zero means unlimited.
	OwnerMax int
}

type OrchestratorConfig struct {
	StepDelay time.Duration
	Limits    map[domain.ActionKind]Limit
}

// Observer receives orchestration metrics.
type Observer interface {
	RequestSubmitted(kind string)
	RequestRejected(reason string)
	RequestFinished(status string)
	ActionPerformed(kind, outcome string, latencySeconds float64)
}

type nopObserver struct{}

func (nopObserver) RequestSubmitted(string) {}
func (nopObserver) RequestRejected(string) {}
func (nopObserver) RequestFinished(string) {}
func (nopObserver) ActionPerformed(string, string, float64) {}

type OrchestratorDeps struct {
	Registry  ports.RequestRegistry
	Pool      *AccountPool
	Cooldowns *CooldownTracker
	Accounts  *AccountService
	Ledger    ports.Ledger
	Resolver  ports.TargetResolver
	Transport ports.ActionTransport
	// Notifier is optional.
	Notifier ports.Notifier
	Clock    ports.Clock
	// Observer is optional.
	Observer Observer
}

// Execution is a registered request whose steps run in the background.
type Execution struct {
	Entry    domain.RequestEntry
	Resource ports.ResourceHandle

	done   chan struct{}
	report domain.Report
}

func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Report is the final report. It is only meaningful once Done is closed.
func (e *Execution) Report() domain.Report {
	return e.report
}

func (e *Execution) Wait(ctx context.Context) (domain.Report, error) {
	select {
	case <-e.done:
		return e.report, nil
	case <-ctx.Done():
		return domain.Report{}, ctx.Err()
	}
}

// Orchestrator validates, registers and drives requests.
type Orchestrator struct {
	registry  ports.RequestRegistry
	pool      *AccountPool
	cooldowns *CooldownTracker
	accounts  *AccountService
	ledger    ports.Ledger
	resolver  ports.TargetResolver
	transport ports.ActionTransport
	notifier  ports.Notifier
	clock     ports.Clock
	observer  Observer
	sequencer *Sequencer
	cfg       OrchestratorConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if cfg.StepDelay < 0 {
		cfg.StepDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		registry:  deps.Registry,
		pool:      deps.Pool,
		cooldowns: deps.Cooldowns,
		accounts:  deps.Accounts,
		ledger:    deps.Ledger,
		resolver:  deps.Resolver,
		transport: deps.Transport,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		observer:  deps.Observer,
		sequencer: NewSequencer(deps.Clock),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit validates cmd and registers it. A non-nil error is the rejection shown to the
// user and leaves no state behind. On success the steps continue in the background.
func (o *Orchestrator) Submit(ctx context.Context, cmd SubmitCommand) (*Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exec, err := o.submit(ctx, cmd)
	if err != nil {
		reason := rejectionReason(err)
		o.observer.RequestRejected(reason)
		slog.Info("request rejected",
			"target", cmd.Target,
			"user", cmd.User,
			"kind", cmd.Kind,
			"amount", cmd.Amount.String(),
			"reason", reason,
		)
		return nil, err
	}

	return exec, nil
}

func (o *Orchestrator) submit(ctx context.Context, cmd SubmitCommand) (*Execution, error) {
	if !cmd.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedAction, cmd.Kind)
	}
	if !cmd.Amount.All && cmd.Amount.N <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	limit, err := o.amountLimit(cmd)
	if err != nil {
		return nil, err
	}

	if current, ok := o.registry.Get(cmd.Target); ok && current.Active() {
		return nil, o.busy(current)
	}

	remaining, err := o.cooldowns.Remaining(ctx, cmd.User)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, &domain.CooldownError{Remaining: remaining}
	}

	resource, err := o.resolver.Resolve(ctx, cmd.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTargetUnresolvable, err)
	}

	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		selection, err := o.pool.Select(ctx, cmd.Amount, cmd.Target, cmd.Kind)
		if err != nil {
			return nil, fmt.Errorf("select accounts: %w", err)
		}
		if limit > 0 && selection.Amount > limit {
			selection.Amount = limit
			if len(selection.Accounts) > limit {
				selection.Accounts = selection.Accounts[:limit]
			}
		}
		if selection.Amount == 0 || selection.Short() {
			return nil, &domain.InsufficientAccountsError{
				Kind:      cmd.Kind,
				Requested: selection.Amount,
				Available: len(selection.Accounts),
				Wait:      selection.NextAvailable,
			}
		}

		entry := o.newEntry(cmd, selection)
		err = o.registry.TryRegister(entry)
		switch {
		case err == nil:
			return o.start(entry, resource), nil
		case errors.Is(err, domain.ErrAccountsEngaged):
			slog.Debug("selected accounts were engaged concurrently, selecting again",
				"target", cmd.Target,
				"attempt", attempt,
			)
		case errors.Is(err, domain.ErrTargetBusy):
			current, _ := o.registry.Get(cmd.Target)
			return nil, o.busy(current)
		default:
			return nil, fmt.Errorf("register request: %w", err)
		}
	}

	return nil, fmt.Errorf("register request for %s: %w", cmd.Target, domain.ErrAccountsEngaged)
}

// amountLimit returns the cap for cmd, zero when unlimited.
func (o *Orchestrator) amountLimit(cmd SubmitCommand) (int, error) {
	limit, ok := o.cfg.Limits[cmd.Kind]
	if !ok {
		return 0, nil
	}

	allowed := limit.Max
	if o.cooldowns.IsOwner(cmd.User) {
		allowed = limit.OwnerMax
	} else if limit.Max <= 0 {
		return 0, fmt.Errorf("%w: %s are currently disabled", domain.ErrCommandRestricted, cmd.Kind.Label())
	}

	if allowed > 0 && !cmd.Amount.All && cmd.Amount.N > allowed {
		return 0, fmt.Errorf("%w: %d %s requested, at most %d allowed", domain.ErrAmountExceedsLimit, cmd.Amount.N, cmd.Kind.Label(), allowed)
	}

	return allowed, nil
}

func (o *Orchestrator) busy(current domain.RequestEntry) error {
	remaining := current.EstimatedCompletionAt.Sub(o.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return &domain.BusyError{Target: current.Target, Remaining: remaining}
}

func (o *Orchestrator) newEntry(cmd SubmitCommand, selection Selection) domain.RequestEntry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	accounts := make([]domain.AccountID, 0, len(selection.Accounts))
	for _, account := range selection.Accounts {
		accounts = append(accounts, account.ID)
	}

	now := o.clock.Now()
	return domain.RequestEntry{
		ID:                    domain.RequestID(id.String()),
		Target:                cmd.Target,
		Status:                domain.RequestActive,
		Kind:                  cmd.Kind,
		Amount:                selection.Amount,
		RequestedBy:           cmd.User,
		Accounts:              accounts,
		CurrentIndex:          -1,
		CreatedAt:             now,
		EstimatedCompletionAt: domain.EstimateCompletion(now, selection.Amount, o.cfg.StepDelay),
		Failed:                map[domain.AccountID]domain.FailureDetail{},
	}
}

func (o *Orchestrator) start(entry domain.RequestEntry, resource ports.ResourceHandle) *Execution {
	exec := &Execution{Entry: entry.Clone(), Resource: resource, done: make(chan struct{})}

	o.observer.RequestSubmitted(string(entry.Kind))
	slog.Info("request registered",
		"request_id", entry.ID,
		"target", entry.Target,
		"kind", entry.Kind,
		"amount", entry.Amount,
		"user", entry.RequestedBy,
		"estimated_completion", entry.EstimatedCompletionAt,
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.sequencer.Run(o.ctx, Sequence{
			Steps: len(entry.Accounts),
			Delay: o.cfg.StepDelay,
			Step: func(ctx context.Context, i int) {
				o.step(ctx, entry, resource, i)
			},
			Aborted: func() bool {
				current, ok := o.registry.Get(entry.Target)
				return !ok || current.ID != entry.ID || current.Status == domain.RequestAborted
			},
			OnComplete: func(executed int, aborted bool) {
				o.complete(entry, exec, executed, aborted)
			},
		})
	}()

	return exec
}

func (o *Orchestrator) step(ctx context.Context, entry domain.RequestEntry, resource ports.ResourceHandle, i int) {
	id := entry.Accounts[i]
	log := slog.With(
		"request_id", entry.ID,
		"target", entry.Target,
		"account", id,
		"kind", entry.Kind,
		"step", i,
	)

	if err := o.registry.Advance(entry.Target, i); err != nil {
		log.Debug("advance request", "error", err)
	}

	started := o.clock.Now()
	err := o.perform(ctx, entry.Kind, resource, id)
	finished := o.clock.Now()
	latency := finished.Sub(started).Seconds()

	// Bookkeeping outlives a shutdown so the outcome of a step that already ran is kept.
	writeCtx := context.WithoutCancel(ctx)

	if i == 0 {
		o.startCooldown(writeCtx, entry, finished, log)
	}

	if err != nil {
		o.observer.ActionPerformed(string(entry.Kind), "failed", latency)
		o.recordFailure(writeCtx, entry, id, i, err, finished, log)
		return
	}

	o.observer.ActionPerformed(string(entry.Kind), "ok", latency)
	log.Debug("action performed", "latency", finished.Sub(started))
	o.recordStance(writeCtx, domain.LedgerEntry{
		Target:    entry.Target,
		Account:   id,
		Kind:      entry.Kind,
		Timestamp: finished,
	}, log)
}

func (o *Orchestrator) perform(ctx context.Context, kind domain.ActionKind, resource ports.ResourceHandle, id domain.AccountID) error {
	account, err := o.accounts.Get(ctx, id)
	if err != nil {
		return &domain.FailureDetail{Reason: domain.FailureUnknown, Message: err.Error()}
	}
	return o.transport.Perform(ctx, kind, resource, account)
}

// startCooldown charges the requesting user once the first step has an outcome.
func (o *Orchestrator) startCooldown(ctx context.Context, entry domain.RequestEntry, now time.Time, log *slog.Logger) {
	at := entry.EstimatedCompletionAt
	if o.cooldowns.Window() == 0 {
		at = now
	}
	if err := o.cooldowns.Set(ctx, entry.RequestedBy, at); err != nil {
		log.Warn("cooldown write failed", "user", entry.RequestedBy, "error", err)
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, entry domain.RequestEntry, id domain.AccountID, i int, err error, at time.Time, log *slog.Logger) {
	detail := classifyFailure(err)
	detail.Step = i
	if detail.At.IsZero() {
		detail.At = at
	}

	log.Warn("action failed", "reason", detail.Reason, "error", err)
	if recordErr := o.registry.RecordFailure(entry.Target, id, detail); recordErr != nil {
		log.Debug("record failure", "error", recordErr)
	}

	if detail.RetryAfter > 0 {
		if limitErr := o.accounts.MarkLimited(ctx, id, at.Add(detail.RetryAfter)); limitErr != nil {
			log.Warn("mark account limited", "error", limitErr)
		}
	}
}

func (o *Orchestrator) recordStance(ctx context.Context, entry domain.LedgerEntry, log *slog.Logger) {
	var err error
	if entry.Kind.Exclusive() {
		err = o.ledger.RecordStance(ctx, entry)
	} else {
		err = o.ledger.Insert(ctx, entry)
	}
	if err != nil {
		log.Warn("ledger write failed", "error", err)
	}
}

func (o *Orchestrator) complete(entry domain.RequestEntry, exec *Execution, executed int, aborted bool) {
	status := domain.RequestCooldown
	if aborted {
		status = domain.RequestAborted
	}

	final, err := o.registry.Finalize(entry.Target, status)
	if err != nil {
		slog.Error("finalize request", "request_id", entry.ID, "target", entry.Target, "error", err)
		final = entry.Clone()
		final.Status = status
	}

	report := domain.ReportFromEntry(final)
	report.Executed = executed
	exec.report = report

	o.observer.RequestFinished(string(report.Status))
	slog.Info("request finished",
		"request_id", report.RequestID,
		"target", report.Target,
		"status", report.Status,
		"executed", report.Executed,
		"failed", report.Failed,
	)

	if o.notifier != nil {
		if err := o.notifier.Notify(context.WithoutCancel(o.ctx), report); err != nil {
			slog.Warn("notify report", "request_id", report.RequestID, "error", err)
		}
	}

	close(exec.done)
}

// Abort stops the request on target before its next step.
func (o *Orchestrator) Abort(target domain.TargetID) error {
	if err := o.registry.MarkAborted(target); err != nil {
		return err
	}
	slog.Info("request abort requested", "target", target)
	return nil
}

func (o *Orchestrator) FailureDetail(target domain.TargetID) (map[domain.AccountID]domain.FailureDetail, error) {
	entry, ok := o.registry.Get(target)
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return entry.Failed, nil
}

func (o *Orchestrator) Status(target domain.TargetID) (domain.RequestEntry, bool) {
	return o.registry.Get(target)
}

func (o *Orchestrator) List() []domain.RequestEntry {
	return o.registry.List()
}

// Wait blocks until every running request has reported.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown stops scheduling further steps and waits for running requests to report.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyFailure(err error) domain.FailureDetail {
	var detail *domain.FailureDetail
	if errors.As(err, &detail) {
		return *detail
	}
	return domain.FailureDetail{Reason: domain.FailureTransport, Message: err.Error()}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTargetBusy):
		return "busy"
	case errors.Is(err, domain.ErrUserOnCooldown):
		return "cooldown"
	case errors.Is(err, domain.ErrCommandRestricted):
		return "restricted"
	case errors.Is(err, domain.ErrAmountExceedsLimit):
		return "limit"
	case errors.Is(err, domain.ErrNoEligibleAccounts):
		return "no_accounts"
	case errors.Is(err, domain.ErrAccountsEngaged):
		return "engaged"
	case errors.Is(err, domain.ErrTargetUnresolvable):
		return "unresolvable"
	case errors.Is(err, domain.ErrUnsupportedAction), errors.Is(err, domain.ErrInvalidAmount):
		return "invalid"
	default:
		return "error"
	}
}
