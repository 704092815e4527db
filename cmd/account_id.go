package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// accountIDFor returns the id an added account is stored under. Empty or "0" picks the
// lowest positive number not used in roster. The id becomes part of a secret path, so
// separators are rejected.
func accountIDFor(raw string, roster []domain.Account) (domain.AccountID, error) {
	requested := strings.TrimSpace(raw)
	if requested == "" || requested == "0" {
		return lowestFreeNumericID(roster), nil
	}

	if n, err := strconv.Atoi(requested); err == nil && n < 0 {
		return "", fmt.Errorf("account id %q must not be negative", requested)
	}
	if strings.ContainsAny(requested, `/\`) || requested == "." || requested == ".." {
		return "", errors.New("account id must not contain path separators")
	}

	return domain.AccountID(requested), nil
}

func lowestFreeNumericID(roster []domain.Account) domain.AccountID {
	used := make(map[int]bool, len(roster))
	for _, account := range roster {
		if n, err := strconv.Atoi(string(account.ID)); err == nil {
			used[n] = true
		}
	}

	next := 1
	for used[next] {
		next++
	}
	return domain.AccountID(strconv.Itoa(next))
}
