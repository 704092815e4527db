package domain

import "time"

type LedgerEntry struct {
	Target    TargetID
	Account   AccountID
	Kind      ActionKind
	Timestamp time.Time
}

// LedgerQuery matches entries on every non-empty field.
type LedgerQuery struct {
	Target  TargetID
	Account AccountID
	Kinds   []ActionKind
}
