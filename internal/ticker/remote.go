package ticker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/focusbot/internal/booking"
	"github.com/teemow/focusbot/internal/calendar"
	"github.com/teemow/focusbot/internal/timerstate"
)

// RemoteClient talks to a focusbot server over HTTP.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient creates a client for the server at baseURL. httpClient may be nil.
func NewRemoteClient(baseURL string, httpClient *http.Client) (*RemoteClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}, nil
}

// ListTasks implements TaskSource.
func (c *RemoteClient) ListTasks(ctx context.Context) ([]calendar.Event, error) {
	var events []calendar.Event
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Load implements StateClient.
func (c *RemoteClient) Load(ctx context.Context) (timerstate.TimerState, error) {
	var st timerstate.TimerState
	err := c.do(ctx, http.MethodGet, "/api/timer-state", nil, &st)
	return st, err
}

// Save implements StateClient.
func (c *RemoteClient) Save(ctx context.Context, u timerstate.Update) error {
	return c.do(ctx, http.MethodPost, "/api/timer-state", u, nil)
}

// Complete finalizes a task on the server.
func (c *RemoteClient) Complete(ctx context.Context, taskID, title string) (booking.CompleteResult, error) {
	var res booking.CompleteResult
	body := map[string]string{"title": title}
	err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(taskID)+"/complete", body, &res)
	return res, err
}

// Renew books a new session with title starting now.
func (c *RemoteClient) Renew(ctx context.Context, title string, minutes int) (*calendar.Event, error) {
	var ev calendar.Event
	body := map[string]any{"title": title, "minutes": minutes}
	if err := c.do(ctx, http.MethodPost, "/api/events/renew", body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// APIError is a non-2xx server response.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *RemoteClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Details = payload.Details
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
