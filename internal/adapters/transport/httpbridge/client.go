// Package httpbridge talks to the engagement bridge service, a JSON HTTP API that
// owns the platform sessions and performs the actual actions.
package httpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

const (
	maxResponseBytes = 1 << 20
	userAgent        = "ea/bridge"

	targetsPath = "/v1/targets/"
	actionsPath = "/v1/actions"
	reportsPath = "/v1/reports"
)

// Client implements the target resolver, the action transport and the report notifier
// against one bridge. Account sessions are read from the secret store on every action.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	Secrets        ports.SecretStore
	RequestTimeout time.Duration
}

var (
	_ ports.TargetResolver  = (*Client)(nil)
	_ ports.ActionTransport = (*Client)(nil)
	_ ports.Notifier        = (*Client)(nil)
)

type targetResponse struct {
	Ref   string `json:"ref"`
	Title string `json:"title"`
}

type actionRequest struct {
	Kind    domain.ActionKind `json:"kind"`
	Target  domain.TargetID   `json:"target"`
	Ref     string            `json:"ref"`
	Account domain.AccountID  `json:"account"`
	Session string            `json:"session,omitempty"`
	Proxy   string            `json:"proxy,omitempty"`
}

type reportRequest struct {
	RequestID   domain.RequestID     `json:"request_id"`
	Target      domain.TargetID      `json:"target"`
	Kind        domain.ActionKind    `json:"kind"`
	RequestedBy domain.UserID        `json:"requested_by"`
	Requested   int                  `json:"requested"`
	Executed    int                  `json:"executed"`
	Failed      int                  `json:"failed"`
	Status      domain.RequestStatus `json:"status"`
	Message     string               `json:"message"`
}

type errorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retry_after_seconds"`
}

func (c *Client) Resolve(ctx context.Context, target domain.TargetID) (ports.ResourceHandle, error) {
	if strings.TrimSpace(string(target)) == "" {
		return ports.ResourceHandle{}, errors.New("target is empty")
	}

	endpoint, err := c.endpoint(targetsPath + url.PathEscape(string(target)))
	if err != nil {
		return ports.ResourceHandle{}, err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.ResourceHandle{}, fmt.Errorf("create resolve request: %w", err)
	}

	body, status, err := c.do(req)
	if err != nil {
		return ports.ResourceHandle{}, fmt.Errorf("resolve target: %w", err)
	}
	if status != http.StatusOK {
		return ports.ResourceHandle{}, fmt.Errorf("resolve target %s: status %d: %s", target, status, decodeError(body).Error)
	}

	var payload targetResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.ResourceHandle{}, fmt.Errorf("decode target response: %w", err)
	}
	if payload.Ref == "" {
		return ports.ResourceHandle{}, errors.New("target response missing ref")
	}

	return ports.ResourceHandle{Target: target, Ref: payload.Ref, Title: payload.Title}, nil
}

func (c *Client) Perform(ctx context.Context, kind domain.ActionKind, resource ports.ResourceHandle, account domain.Account) error {
	session := ""
	if account.SecretRef != "" && c.Secrets != nil {
		value, err := c.Secrets.Get(ctx, account.SecretRef)
		if err != nil {
			if errors.Is(err, domain.ErrSecretNotFound) {
				return &domain.FailureDetail{Reason: domain.FailureUnauthorized, Message: "no session stored for account"}
			}
			return fmt.Errorf("load account session: %w", err)
		}
		session = value
	}

	payload, err := json.Marshal(actionRequest{
		Kind:    kind,
		Target:  resource.Target,
		Ref:     resource.Ref,
		Account: account.ID,
		Session: session,
		Proxy:   account.Proxy,
	})
	if err != nil {
		return fmt.Errorf("encode action request: %w", err)
	}

	endpoint, err := c.endpoint(actionsPath)
	if err != nil {
		return err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create action request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, retryAfter, err := c.doWithRetryAfter(req)
	if err != nil {
		return fmt.Errorf("perform action: %w", err)
	}
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	return failureFromResponse(status, body, retryAfter)
}

func (c *Client) Notify(ctx context.Context, report domain.Report) error {
	payload, err := json.Marshal(reportRequest{
		RequestID:   report.RequestID,
		Target:      report.Target,
		Kind:        report.Kind,
		RequestedBy: report.RequestedBy,
		Requested:   report.Requested,
		Executed:    report.Executed,
		Failed:      report.Failed,
		Status:      report.Status,
		Message:     report.Message(),
	})
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	endpoint, err := c.endpoint(reportsPath)
	if err != nil {
		return err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("send report: status %d: %s", status, decodeError(body).Error)
	}

	return nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	body, status, _, err := c.doWithRetryAfter(req)
	return body, status, err
}

func (c *Client) doWithRetryAfter(req *http.Request) ([]byte, int, string, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

func (c *Client) endpoint(path string) (string, error) {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return "", errors.New("bridge base url is required")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse bridge base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid bridge base url %q", base)
	}

	return strings.TrimRight(base, "/") + path, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.RequestTimeout)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func failureFromResponse(status int, body []byte, retryAfterHeader string) *domain.FailureDetail {
	payload := decodeError(body)

	detail := &domain.FailureDetail{Message: payload.Error}
	if detail.Message == "" {
		detail.Message = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		detail.Reason = domain.FailureRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		detail.Reason = domain.FailureUnauthorized
	case status == http.StatusNotFound || status == http.StatusGone:
		detail.Reason = domain.FailureNotFound
	case status >= http.StatusInternalServerError:
		detail.Reason = domain.FailureTransport
	default:
		detail.Reason = domain.FailureUnknown
	}

	if payload.RetryAfterSeconds > 0 {
		detail.RetryAfter = time.Duration(payload.RetryAfterSeconds) * time.Second
	} else if seconds, err := strconv.ParseInt(strings.TrimSpace(retryAfterHeader), 10, 64); err == nil && seconds > 0 {
		detail.RetryAfter = time.Duration(seconds) * time.Second
	}

	return detail
}

func decodeError(body []byte) errorResponse {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(body))
	}
	return payload
}
