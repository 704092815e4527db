package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// Amount accepts either a JSON number or the string form ("5", "all").
type Amount struct {
	domain.AmountSpec
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		spec, err := domain.ParseAmount(strconv.Itoa(n))
		if err != nil {
			return err
		}
		a.AmountSpec = spec
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, data)
	}
	spec, err := domain.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.AmountSpec = spec
	return nil
}

type SubmitRequest struct {
	Kind   string `json:"kind"`
	Amount Amount `json:"amount"`
	Target string `json:"target"`
	User   string `json:"user"`
}

type Request struct {
	ID                    domain.RequestID     `json:"id"`
	Target                domain.TargetID      `json:"target"`
	Status                domain.RequestStatus `json:"status"`
	Kind                  domain.ActionKind    `json:"kind"`
	Amount                int                  `json:"amount"`
	RequestedBy           domain.UserID        `json:"requested_by"`
	Accounts              []domain.AccountID   `json:"accounts"`
	CurrentIndex          int                  `json:"current_index"`
	Executed              int                  `json:"executed"`
	Failed                int                  `json:"failed"`
	CreatedAt             time.Time            `json:"created_at"`
	EstimatedCompletionAt time.Time            `json:"estimated_completion_at"`
}

type Failure struct {
	Account           domain.AccountID     `json:"account"`
	Step              int                  `json:"step"`
	Reason            domain.FailureReason `json:"reason"`
	Message           string               `json:"message,omitempty"`
	RetryAfterSeconds int64                `json:"retry_after_seconds,omitempty"`
	At                time.Time            `json:"at"`
}

type errorBody struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

func requestFromEntry(entry domain.RequestEntry) Request {
	return Request{
		ID:                    entry.ID,
		Target:                entry.Target,
		Status:                entry.Status,
		Kind:                  entry.Kind,
		Amount:                entry.Amount,
		RequestedBy:           entry.RequestedBy,
		Accounts:              append([]domain.AccountID{}, entry.Accounts...),
		CurrentIndex:          entry.CurrentIndex,
		Executed:              entry.Executed(),
		Failed:                len(entry.Failed),
		CreatedAt:             entry.CreatedAt,
		EstimatedCompletionAt: entry.EstimatedCompletionAt,
	}
}

// Entry rebuilds the registry view of r. Failure details are served separately.
func (r Request) Entry() domain.RequestEntry {
	return domain.RequestEntry{
		ID:                    r.ID,
		Target:                r.Target,
		Status:                r.Status,
		Kind:                  r.Kind,
		Amount:                r.Amount,
		RequestedBy:           r.RequestedBy,
		Accounts:              append([]domain.AccountID(nil), r.Accounts...),
		CurrentIndex:          r.CurrentIndex,
		CreatedAt:             r.CreatedAt,
		EstimatedCompletionAt: r.EstimatedCompletionAt,
		Failed:                map[domain.AccountID]domain.FailureDetail{},
	}
}

func failuresFromMap(failures map[domain.AccountID]domain.FailureDetail) []Failure {
	out := make([]Failure, 0, len(failures))
	for id, detail := range failures {
		out = append(out, Failure{
			Account:           id,
			Step:              detail.Step,
			Reason:            detail.Reason,
			Message:           detail.Message,
			RetryAfterSeconds: int64(detail.RetryAfter / time.Second),
			At:                detail.At,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Step != out[j].Step {
			return out[i].Step < out[j].Step
		}
		return out[i].Account < out[j].Account
	})
	return out
}

func failuresToMap(failures []Failure) map[domain.AccountID]domain.FailureDetail {
	out := make(map[domain.AccountID]domain.FailureDetail, len(failures))
	for _, f := range failures {
		out[f.Account] = domain.FailureDetail{
			Step:       f.Step,
			Reason:     f.Reason,
			Message:    f.Message,
			RetryAfter: time.Duration(f.RetryAfterSeconds) * time.Second,
			At:         f.At,
		}
	}
	return out
}
