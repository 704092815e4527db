package ports

import (
	"context"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// ResourceHandle is the resolved form of a target as understood by the transport.
type ResourceHandle struct {
	Target domain.TargetID
	Ref    string
	Title  string
}

type TargetResolver interface {
	Resolve(ctx context.Context, target domain.TargetID) (ResourceHandle, error)
}

// ActionTransport performs one action as one account. Failures the platform reports are
// returned as *domain.FailureDetail; any other error counts as a transport failure.
type ActionTransport interface {
	Perform(ctx context.Context, kind domain.ActionKind, resource ResourceHandle, account domain.Account) error
}

type Notifier interface {
	Notify(ctx context.Context, report domain.Report) error
}
