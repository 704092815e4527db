package application

import (
	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

type SubmitCommand struct {
	Kind   domain.ActionKind
	Amount domain.AmountSpec
	Target domain.TargetID
	User   domain.UserID
}

type AddAccountCommand struct {
	ID    domain.AccountID
	Name  string
	Proxy string
	// Session is the credential stored in the secret store; empty keeps the current one.
	Session string
}
