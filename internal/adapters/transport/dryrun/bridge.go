// Package dryrun stands in for the bridge when no base url is configured. Every action
// succeeds and is only logged.
package dryrun

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

type Action struct {
	Kind    domain.ActionKind
	Target  domain.TargetID
	Account domain.AccountID
}

type Bridge struct {
	mu        sync.Mutex
	performed []Action
}

var (
	_ ports.TargetResolver  = (*Bridge)(nil)
	_ ports.ActionTransport = (*Bridge)(nil)
	_ ports.Notifier        = (*Bridge)(nil)
)

func New() *Bridge {
	return &Bridge{}
}

func (b *Bridge) Resolve(ctx context.Context, target domain.TargetID) (ports.ResourceHandle, error) {
	if err := ctx.Err(); err != nil {
		return ports.ResourceHandle{}, err
	}
	if strings.TrimSpace(string(target)) == "" {
		return ports.ResourceHandle{}, errors.New("target is empty")
	}
	return ports.ResourceHandle{Target: target, Ref: string(target)}, nil
}

func (b *Bridge) Perform(ctx context.Context, kind domain.ActionKind, resource ports.ResourceHandle, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.performed = append(b.performed, Action{Kind: kind, Target: resource.Target, Account: account.ID})
	b.mu.Unlock()

	slog.Info("dry run action", "kind", kind, "target", resource.Target, "account", account.ID, "proxied", account.Proxied())
	return nil
}

func (b *Bridge) Notify(_ context.Context, report domain.Report) error {
	slog.Info("dry run report", "request_id", report.RequestID, "target", report.Target, "message", report.Message())
	return nil
}

// Performed returns the actions seen so far, oldest first.
func (b *Bridge) Performed() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Action(nil), b.performed...)
}
