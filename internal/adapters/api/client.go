package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
)

// Client talks to a running `ea serve`.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Error is a non-2xx response. Message is the server's rejection text.
type Error struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return e.Message
}

func NewClient(addr string, httpClient *http.Client) *Client {
	base := strings.TrimSpace(addr)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{BaseURL: strings.TrimRight(base, "/"), HTTPClient: httpClient}
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Request{}, fmt.Errorf("encode submit request: %w", err)
	}

	var out Request
	if err := c.do(ctx, http.MethodPost, "/api/v1/requests", payload, &out); err != nil {
		return Request{}, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/api/v1/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, target domain.TargetID) (Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodGet, requestPath(target), nil, &out); err != nil {
		return Request{}, err
	}
	return out, nil
}

func (c *Client) Abort(ctx context.Context, target domain.TargetID) error {
	return c.do(ctx, http.MethodDelete, requestPath(target), nil, nil)
}

func (c *Client) Failures(ctx context.Context, target domain.TargetID) (map[domain.AccountID]domain.FailureDetail, error) {
	var out []Failure
	if err := c.do(ctx, http.MethodGet, requestPath(target)+"/failures", nil, &out); err != nil {
		return nil, err
	}
	return failuresToMap(out), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach ea server at %s: %w", c.BaseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read server response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var payload errorBody
		_ = json.Unmarshal(data, &payload)
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    payload.Error,
			RetryAfter: time.Duration(payload.RetryAfterSeconds) * time.Second,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode server response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func requestPath(target domain.TargetID) string {
	return "/api/v1/requests/" + url.PathEscape(string(target))
}
