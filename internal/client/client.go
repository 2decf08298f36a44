// Package client talks to the daemon's HTTP API on behalf of the CLI
// and the process-control helpers. All methods decode into the api
// package's DTOs and surface the server's error message when a request
// is rejected.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/api"
)

// ErrDaemonUnavailable marks a daemon that is not listening on its API
// address.
var ErrDaemonUnavailable = errors.New("daemon api unavailable")

// StatusError carries a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api returned status %d", e.Code)
}

// Client issues requests against one daemon API address.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// New builds a client for the given bind address. A bare host:port gets
// an http scheme. Returns nil when bind is empty, meaning no API is
// configured.
func New(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Health reports whether the daemon answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	var payload api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &payload); err != nil {
		return err
	}
	if payload.Status != "ok" {
		return fmt.Errorf("daemon reports %s", payload.Status)
	}
	return nil
}

// Status fetches the full daemon snapshot.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var payload api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SubmitCheck asks the daemon to verify one portal listing URL.
func (c *Client) SubmitCheck(ctx context.Context, rawURL string) (*api.Check, error) {
	var payload api.CheckResponse
	req := api.SubmitCheckRequest{URL: rawURL}
	if err := c.do(ctx, http.MethodPost, "/api/checks", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload.Check, nil
}

// GetCheck fetches one check by id.
func (c *Client) GetCheck(ctx context.Context, id int64) (*api.Check, error) {
	var payload api.CheckResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/checks/%d", id), nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Check, nil
}

// ListChecks fetches recent checks, newest first. limit <= 0 uses the
// server default.
func (c *Client) ListChecks(ctx context.Context, limit int) ([]api.CheckSummary, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload api.CheckListResponse
	if err := c.do(ctx, http.MethodGet, "/api/checks", values, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Checks, nil
}

// ChoosePlatform resumes an awaiting-choice check with the given
// platform.
func (c *Client) ChoosePlatform(ctx context.Context, id int64, platform string, remember bool) (*api.Check, error) {
	var payload api.CheckResponse
	req := api.PlatformChoiceRequest{Platform: platform, Remember: &remember}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/checks/%d/platform", id), nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload.Check, nil
}

// ListKnowledge fetches the routing knowledge table.
func (c *Client) ListKnowledge(ctx context.Context) ([]api.KnowledgeItem, error) {
	var payload api.KnowledgeListResponse
	if err := c.do(ctx, http.MethodGet, "/api/knowledge", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

// SaveKnowledge upserts one routing row.
func (c *Client) SaveKnowledge(ctx context.Context, company, phone, platform string, requiresManual bool) (*api.KnowledgeItem, error) {
	var payload api.KnowledgeItemResponse
	req := api.KnowledgeUpsertRequest{
		Company:        company,
		Phone:          phone,
		Platform:       platform,
		RequiresManual: requiresManual,
	}
	if err := c.do(ctx, http.MethodPost, "/api/knowledge", nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload.Entry, nil
}

// DeleteKnowledge removes one routing row.
func (c *Client) DeleteKnowledge(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/knowledge/%d", id), nil, nil, nil)
}

// ListTasks fetches phone tasks, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, status string) ([]api.PhoneTask, error) {
	values := url.Values{}
	if strings.TrimSpace(status) != "" {
		values.Set("status", status)
	}
	var payload api.TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/phone-tasks", values, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

// TaskCount fetches the number of pending phone tasks.
func (c *Client) TaskCount(ctx context.Context) (int, error) {
	var payload api.TaskCountResponse
	if err := c.do(ctx, http.MethodGet, "/api/phone-tasks/count", nil, nil, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

// UpdateTask completes or cancels a phone task.
func (c *Client) UpdateTask(ctx context.Context, id int64, status, note string) (*api.PhoneTask, error) {
	var payload api.TaskResponse
	req := api.TaskUpdateRequest{Status: status, Note: note}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/phone-tasks/%d", id), nil, req, &payload); err != nil {
		return nil, err
	}
	return &payload.Task, nil
}

// TestNotify asks the daemon to push a test message through its configured
// notification channels.
func (c *Client) TestNotify(ctx context.Context) (*api.NotifyTestResponse, error) {
	var payload api.NotifyTestResponse
	if err := c.do(ctx, http.MethodPost, "/api/test-notify", nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrDaemonUnavailable
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError extracts the server's error message from a failed
// response.
func statusError(resp *http.Response) error {
	serr := &StatusError{Code: resp.StatusCode}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		serr.Message = payload["error"]
	}
	return serr
}

// IsUnavailable reports whether err means the daemon is not listening,
// as opposed to the daemon rejecting the request.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrDaemonUnavailable) || errors.As(err, &opErr)
}
