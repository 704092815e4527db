// Package status renders request progress, failure maps and the account roster for the
// terminal.
package status

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const progressWidth = 24

type RenderOptions struct {
	Now time.Time
}

func RenderRequests(entries []domain.RequestEntry, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return requestsView(entries, opts, s) })
}

func RenderFailures(target domain.TargetID, failures map[domain.AccountID]domain.FailureDetail, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return failuresView(target, failures, opts, s) })
}

// RenderAccounts shows the roster. engaged maps accounts busy in a running request to
// that request's estimated completion.
func RenderAccounts(accounts []domain.Account, engaged map[domain.AccountID]time.Time, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return accountsView(accounts, engaged, opts, s) })
}

func requestsView(entries []domain.RequestEntry, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Requests"),
		s.header.Render(fmt.Sprintf("requests: %d", len(entries))),
	}

	if len(entries) == 0 {
		lines = append(lines, s.empty.Render("No requests yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	sorted := append([]domain.RequestEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Target < sorted[j].Target
	})

	for _, entry := range sorted {
		lines = append(lines, s.section.Render(requestBlock(entry, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func requestBlock(entry domain.RequestEntry, opts RenderOptions, s styles) string {
	title := s.item.Render(fmt.Sprintf("%s %s", entry.Target, entry.Kind.Label()))
	parts := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, title, " ", statusBadge(entry.Status, s)),
		progressLine(entry, s),
		s.meta.Render(fmt.Sprintf("requested by %s, id %s", entry.RequestedBy, entry.ID)),
	}

	if entry.Active() {
		parts = append(parts, s.detail.Render(etaLabel(entry.EstimatedCompletionAt, opts.Now)))
	}
	if n := len(entry.Failed); n > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("%d failed", n)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func statusBadge(status domain.RequestStatus, s styles) string {
	label := fmt.Sprintf("[%s]", status)
	switch status {
	case domain.RequestActive:
		return s.ok.Render(label)
	case domain.RequestAborted:
		return s.warning.Render(label)
	default:
		return s.meta.Render(label)
	}
}

func progressLine(entry domain.RequestEntry, s styles) string {
	executed := entry.Executed()
	percent := 0.0
	if entry.Amount > 0 {
		percent = float64(executed) / float64(entry.Amount) * 100
	}

	countStyle := lipgloss.NewStyle().Foreground(interpolateColor(percent, 0, 100))
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("progress:"),
		" ",
		renderProgressBar(percent, progressWidth, s),
		" ",
		countStyle.Render(fmt.Sprintf("%d/%d", executed, entry.Amount)),
	)
}

func etaLabel(eta, now time.Time) string {
	if now.IsZero() {
		return "last step at " + eta.Format(time.RFC3339)
	}
	if !eta.After(now) {
		return "finishing"
	}
	return "last step in " + domain.FormatWait(eta.Sub(now))
}

func failuresView(target domain.TargetID, failures map[domain.AccountID]domain.FailureDetail, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Failures for %s", target)),
		s.header.Render(fmt.Sprintf("failed: %d", len(failures))),
	}

	if len(failures) == 0 {
		lines = append(lines, s.empty.Render("No failed actions."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	ids := make([]domain.AccountID, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := failures[ids[i]], failures[ids[j]]
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		lines = append(lines, failureLine(id, failures[id], opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func failureLine(id domain.AccountID, detail domain.FailureDetail, opts RenderOptions, s styles) string {
	parts := []string{
		s.item.Render(string(id)),
		s.meta.Render(fmt.Sprintf("step %d", detail.Step+1)),
		s.warning.Render(string(detail.Reason)),
	}
	if detail.Message != "" {
		parts = append(parts, s.detail.Render(detail.Message))
	}
	if detail.RetryAfter > 0 {
		parts = append(parts, s.meta.Render(fmt.Sprintf("(retry after %s)", domain.FormatWait(detail.RetryAfter))))
	}
	if !detail.At.IsZero() && !opts.Now.IsZero() {
		parts = append(parts, s.meta.Render(fmt.Sprintf("%s ago", domain.FormatWait(opts.Now.Sub(detail.At)))))
	}

	return strings.Join(parts, " ")
}

func accountsView(accounts []domain.Account, engaged map[domain.AccountID]time.Time, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(accounts))),
	}

	if len(accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for i, account := range accounts {
		title := s.item.Render(fmt.Sprintf("%d. %s (%s)", i+1, account.DisplayName(), account.ID))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, title, " ", accountState(account, engaged, opts.Now, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func accountState(account domain.Account, engaged map[domain.AccountID]time.Time, now time.Time, s styles) string {
	var notes []string
	if account.Proxied() {
		notes = append(notes, "proxied")
	}

	var state string
	switch {
	case account.Disabled:
		state = s.warning.Render("disabled")
	case account.Limited(now):
		state = s.warning.Render("limited for " + domain.FormatWait(account.LimitedUntil.Sub(now)))
	default:
		if eta, ok := engaged[account.ID]; ok {
			state = s.detail.Render("engaged, free in " + domain.FormatWait(eta.Sub(now)))
		} else {
			state = s.ok.Render("ready")
		}
	}

	if len(notes) == 0 {
		return state
	}
	return state + " " + s.meta.Render("("+strings.Join(notes, ", ")+")")
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return lipgloss.Color(fmt.Sprintf("%d", int(240.0+15.0*normalized)))
}
