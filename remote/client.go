/*
Package remote is the HTTP client of the attendance service.

PURPOSE:
  One Client covers the whole service surface:
    - catalog:    units, positions, deduction tables
    - lookup:     POST /api/calculate (implements deduction.Lookup)
    - attendance: create/query/update/delete (implements attendance.RemoteStore)

RESULTS:
  Every call returns (payload, error). Errors are typed so callers can match
  on them instead of inspecting response fields:
    - attendance calls fail with *attendance.RemoteError
      (RemoteTransport for network errors, RemoteRejected for a non-2xx
      status or success=false)
    - Calculate fails with *deduction.LookupError
    - catalog calls fail with *CallError

TIMEOUT:
  Requests use an http.Client with a 10 second timeout unless overridden.

SEE ALSO:
  - api/dto.go: Wire contract
  - attendance/adapter.go: Consumer of the RemoteStore side
*/
package remote

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

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/api"
)

// DefaultTimeout applies when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// ErrService marks any failed service call.
var ErrService = errors.New("attendance service request failed")

// CallError is the failure of one HTTP call.
type CallError struct {
	Method    string
	Path      string
	Status    int    // 0 for transport failures
	Message   string // service error message
	Transport bool
	Err       error
}

func (e *CallError) Error() string {
	switch {
	case e.Transport:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *CallError) Unwrap() []error { return []error{ErrService, e.Err} }

// Client talks to the attendance service.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger

	timeout    time.Duration
	hasTimeout bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A nil client keeps
// the default one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout. It applies to a copy of the
// http.Client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithLogger sets the client logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the service at baseURL (e.g. "http://host:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.hasTimeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends one request and decodes the envelope. out, when non-nil,
// receives the envelope data.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (api.RawEnvelope, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return api.RawEnvelope{}, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return api.RawEnvelope{}, &CallError{Method: method, Path: path, Transport: true, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return api.RawEnvelope{}, &CallError{Method: method, Path: path, Transport: true, Err: err}
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("attendance service call")

	var env api.RawEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return api.RawEnvelope{}, &CallError{Method: method, Path: path, Status: resp.StatusCode, Err: err}
		}
		return api.RawEnvelope{}, &CallError{Method: method, Path: path, Status: resp.StatusCode, Transport: true, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return env, &CallError{Method: method, Path: path, Status: resp.StatusCode, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, &CallError{Method: method, Path: path, Status: resp.StatusCode, Transport: true, Err: fmt.Errorf("failed to decode data: %w", err)}
		}
	}
	return env, nil
}
