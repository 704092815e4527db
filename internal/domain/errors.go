package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrUnsupportedAction  = errors.New("unsupported action kind")
	ErrInvalidAmount      = errors.New("amount must be a positive number or \"all\"")
	ErrTargetBusy         = errors.New("target already has an active request")
	ErrUserOnCooldown     = errors.New("user is on cooldown")
	ErrCommandRestricted  = errors.New("command is restricted")
	ErrAmountExceedsLimit = errors.New("amount exceeds the allowed maximum")
	ErrNoEligibleAccounts = errors.New("not enough eligible accounts")
	ErrAccountsEngaged    = errors.New("accounts are engaged in another active request")
	ErrTargetUnresolvable = errors.New("target could not be resolved")
	ErrRequestNotFound    = errors.New("request not found")
	ErrRequestNotActive   = errors.New("request is not active")
)

type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("you are on cooldown, please wait %s before submitting another request", FormatWait(e.Remaining))
}

func (e *CooldownError) Unwrap() error {
	return ErrUserOnCooldown
}

type BusyError struct {
	Target    TargetID
	Remaining time.Duration
}

func (e *BusyError) Error() string {
	if e.Remaining <= 0 {
		return fmt.Sprintf("a request for %s is already running", e.Target)
	}
	return fmt.Sprintf("a request for %s is already running and should finish in %s", e.Target, FormatWait(e.Remaining))
}

func (e *BusyError) Unwrap() error {
	return ErrTargetBusy
}

// InsufficientAccountsError is returned when fewer accounts than requested can act.
// Wait is non-zero when more accounts become eligible later.
type InsufficientAccountsError struct {
	Kind      ActionKind
	Requested int
	Available int
	Wait      time.Duration
}

func (e *InsufficientAccountsError) Error() string {
	if e.Requested <= 0 {
		if e.Wait > 0 {
			return fmt.Sprintf("no accounts can send %s to this target right now, try again in %s", e.Kind.Label(), FormatWait(e.Wait))
		}
		return fmt.Sprintf("no accounts are left to send %s to this target", e.Kind.Label())
	}
	if e.Wait > 0 {
		return fmt.Sprintf("only %d of %d requested %s are available right now, try again in %s", e.Available, e.Requested, e.Kind.Label(), FormatWait(e.Wait))
	}
	return fmt.Sprintf("only %d accounts are available for %s on this target, %d were requested", e.Available, e.Kind.Label(), e.Requested)
}

func (e *InsufficientAccountsError) Unwrap() error {
	return ErrNoEligibleAccounts
}
