// Package store is the client for the remote events service. It holds no
// state beyond its configuration: every call goes to the network.
package store

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

	appLog "eventlist/internal/log"
	"eventlist/internal/model"
)

// StatusError is returned when the events service answers with a non-2xx
// status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.URL, e.Status)
}

// Client talks to the events service rooted at a base URL.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout bounds every request. Zero (the default) means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a Client for baseURL (e.g. "http://localhost:3000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("store: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store: base URL %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchEvents issues GET /events and returns the parsed list.
func (c *Client) FetchEvents(ctx context.Context) ([]model.Event, error) {
	body, err := c.do(ctx, http.MethodGet, "/events", nil)
	if err != nil {
		return nil, err
	}

	var events []model.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("store: decode events: %w", err)
	}
	if events == nil {
		// "null" decodes to nil; the contract is an array.
		return nil, errors.New("store: decode events: response is not an array")
	}

	appLog.Debug("store fetch events", "count", len(events))
	return events, nil
}

// AddEvent issues POST /events with the draft as JSON and returns the
// server's response body, which must be valid JSON. Use DecodeEvent to read
// it as the created Event.
func (c *Client) AddEvent(ctx context.Context, draft model.Draft) (json.RawMessage, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("store: encode draft: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/events", payload)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, errors.New("store: add event: response is not valid JSON")
	}

	appLog.Debug("store add event", "name", draft.Name)
	return json.RawMessage(body), nil
}

// DeleteEvent issues DELETE /events/{id}. The response body is ignored.
func (c *Client) DeleteEvent(ctx context.Context, id model.ID) error {
	if id == "" {
		return errors.New("store: delete event: empty id")
	}
	if _, err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id.String()), nil); err != nil {
		return err
	}
	appLog.Debug("store delete event", "id", id)
	return nil
}

// DecodeEvent reads an AddEvent response as an Event.
func DecodeEvent(raw json.RawMessage) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Event{}, fmt.Errorf("store: decode event: %w", err)
	}
	return ev, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("store: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appLog.Warn("store non-2xx response", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	return body, nil
}
