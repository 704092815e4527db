package domain

import "fmt"

// Report is the single final message produced for every registered request.
type Report struct {
	RequestID   RequestID
	Target      TargetID
	Kind        ActionKind
	RequestedBy UserID
	Requested   int
	Executed    int
	Failed      int
	Status      RequestStatus
}

func ReportFromEntry(entry RequestEntry) Report {
	return Report{
		RequestID:   entry.ID,
		Target:      entry.Target,
		Kind:        entry.Kind,
		RequestedBy: entry.RequestedBy,
		Requested:   entry.Amount,
		Executed:    entry.Executed(),
		Failed:      len(entry.Failed),
		Status:      entry.Status,
	}
}

func (r Report) Aborted() bool {
	return r.Status == RequestAborted
}

func (r Report) Succeeded() int {
	if n := r.Executed - r.Failed; n > 0 {
		return n
	}
	return 0
}

func (r Report) Message() string {
	if r.Aborted() {
		return fmt.Sprintf("Request aborted: %d/%d %s sent to %s before the abort.", r.Succeeded(), r.Requested, r.Kind.Label(), r.Target)
	}

	msg := fmt.Sprintf("Finished: %d/%d %s sent to %s.", r.Succeeded(), r.Requested, r.Kind.Label(), r.Target)
	if r.Failed > 0 {
		msg += fmt.Sprintf(" %d failed, run `ea failures --target %s` to see why.", r.Failed, r.Target)
	}
	return msg
}
