package status

import (
	"strings"
	"testing"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRenderActiveRequest(t *testing.T) {
	output, err := RenderRequests([]domain.RequestEntry{
		{
			ID:                    "req-1",
			Target:                "post-1",
			Status:                domain.RequestActive,
			Kind:                  domain.ActionUpvote,
			Amount:                4,
			RequestedBy:           "alice",
			Accounts:              []domain.AccountID{"a", "b", "c", "d"},
			CurrentIndex:          1,
			EstimatedCompletionAt: renderNow.Add(30 * time.Second),
			Failed:                map[domain.AccountID]domain.FailureDetail{"b": {Reason: domain.FailureTransport}},
		},
	}, RenderOptions{Now: renderNow})

	require.NoError(t, err)
	assert.Contains(t, output, "requests: 1")
	assert.Contains(t, output, "post-1 upvotes")
	assert.Contains(t, output, "[active]")
	assert.Contains(t, output, "[============------------]")
	assert.Contains(t, output, "2/4")
	assert.Contains(t, output, "requested by alice, id req-1")
	assert.Contains(t, output, "last step in 30 seconds")
	assert.Contains(t, output, "1 failed")
}

func TestRenderFinishedRequestsSortedByTarget(t *testing.T) {
	output, err := RenderRequests([]domain.RequestEntry{
		{Target: "zeta", Status: domain.RequestAborted, Kind: domain.ActionComment, Amount: 5, CurrentIndex: 1},
		{Target: "alpha", Status: domain.RequestCooldown, Kind: domain.ActionDownvote, Amount: 2, CurrentIndex: 1},
	}, RenderOptions{Now: renderNow})

	require.NoError(t, err)
	assert.Contains(t, output, "[aborted]")
	assert.Contains(t, output, "[cooldown]")
	assert.NotContains(t, output, "last step")
	assert.Less(t, strings.Index(output, "alpha"), strings.Index(output, "zeta"))
}

func TestRenderNoRequests(t *testing.T) {
	output, err := RenderRequests(nil, RenderOptions{})
	require.NoError(t, err)
	assert.Contains(t, output, "requests: 0")
	assert.Contains(t, output, "No requests yet.")
}

func TestRenderFailuresOrderedByStep(t *testing.T) {
	output, err := RenderFailures("post-1", map[domain.AccountID]domain.FailureDetail{
		"late":  {Step: 3, Reason: domain.FailureUnauthorized, Message: "session expired", At: renderNow.Add(-2 * time.Minute)},
		"early": {Step: 0, Reason: domain.FailureRateLimited, RetryAfter: 10 * time.Minute},
	}, RenderOptions{Now: renderNow})

	require.NoError(t, err)
	assert.Contains(t, output, "Failures for post-1")
	assert.Contains(t, output, "failed: 2")
	assert.Contains(t, output, "early step 1 rate_limited (retry after 10 minutes)")
	assert.Contains(t, output, "late step 4 unauthorized session expired 2 minutes ago")
	assert.Less(t, strings.Index(output, "early"), strings.Index(output, "late"))
}

func TestRenderNoFailures(t *testing.T) {
	output, err := RenderFailures("post-1", nil, RenderOptions{Now: renderNow})
	require.NoError(t, err)
	assert.Contains(t, output, "No failed actions.")
}

func TestRenderAccountsStates(t *testing.T) {
	output, err := RenderAccounts([]domain.Account{
		{ID: "a", Name: "Alpha"},
		{ID: "b", Proxy: "socks5://127.0.0.1:1080"},
		{ID: "c", Disabled: true},
		{ID: "d", LimitedUntil: renderNow.Add(5 * time.Minute)},
		{ID: "e", LimitedUntil: renderNow.Add(-time.Minute)},
	}, map[domain.AccountID]time.Time{"b": renderNow.Add(45 * time.Second)}, RenderOptions{Now: renderNow})

	require.NoError(t, err)
	assert.Contains(t, output, "accounts: 5")
	assert.Contains(t, output, "1. Alpha (a) ready")
	assert.Contains(t, output, "2. b (b) engaged, free in 45 seconds (proxied)")
	assert.Contains(t, output, "3. c (c) disabled")
	assert.Contains(t, output, "4. d (d) limited for 5 minutes")
	assert.Contains(t, output, "5. e (e) ready")
}

func TestRenderNoAccounts(t *testing.T) {
	output, err := RenderAccounts(nil, nil, RenderOptions{Now: renderNow})
	require.NoError(t, err)
	assert.Contains(t, output, "No accounts configured.")
}

func TestRenderProgressBarBounds(t *testing.T) {
	s := newStyles()
	assert.Equal(t, "[----]", renderProgressBar(-10, 4, s))
	assert.Equal(t, "[====]", renderProgressBar(150, 4, s))
	assert.Empty(t, renderProgressBar(50, 0, s))
}
