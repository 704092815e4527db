package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const amountAll = "all"

// AmountSpec is either a positive count or the "all eligible accounts" sentinel.
type AmountSpec struct {
	N   int
	All bool
}

func AllAccounts() AmountSpec {
	return AmountSpec{All: true}
}

func Amount(n int) AmountSpec {
	return AmountSpec{N: n}
}

func ParseAmount(raw string) (AmountSpec, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == amountAll {
		return AllAccounts(), nil
	}

	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return AmountSpec{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	return Amount(n), nil
}

func (a AmountSpec) String() string {
	if a.All {
		return amountAll
	}
	return strconv.Itoa(a.N)
}
