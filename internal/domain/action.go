package domain

import (
	"fmt"
	"strings"
)

type ActionKind string

const (
	ActionComment  ActionKind = "comment"
	ActionUpvote   ActionKind = "upvote"
	ActionDownvote ActionKind = "downvote"
)

var ActionKinds = []ActionKind{ActionComment, ActionUpvote, ActionDownvote}

func ParseActionKind(raw string) (ActionKind, error) {
	kind := ActionKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAction, raw)
	}
	return kind, nil
}

func (k ActionKind) Valid() bool {
	switch k {
	case ActionComment, ActionUpvote, ActionDownvote:
		return true
	default:
		return false
	}
}

// Exclusive reports whether k belongs to the mutually exclusive stance set.
func (k ActionKind) Exclusive() bool {
	_, ok := k.Opposing()
	return ok
}

// Opposing returns the stance that k replaces in the ledger.
func (k ActionKind) Opposing() (ActionKind, bool) {
	switch k {
	case ActionUpvote:
		return ActionDownvote, true
	case ActionDownvote:
		return ActionUpvote, true
	default:
		return "", false
	}
}

func (k ActionKind) Label() string {
	switch k {
	case ActionComment:
		return "comments"
	case ActionUpvote:
		return "upvotes"
	case ActionDownvote:
		return "downvotes"
	default:
		return string(k)
	}
}
