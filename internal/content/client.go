// Package content talks to the third-party book, video and question
// generation APIs.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"readquest/internal/logger"
)

var (
	// ErrUpstream marks any failure talking to a third-party API
	ErrUpstream = errors.New("upstream request failed")

	// ErrMalformedResponse marks a response that did not have the expected shape
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 4 << 20

// UpstreamError carries the service name and HTTP status of a failed call
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Transient reports whether a retry could plausibly succeed: network
// failures, 5xx and 429. Everything else is terminal.
func (e *UpstreamError) Transient() bool {
	if e.StatusCode == 0 {
		return e.Err != nil && !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports whether err is worth one more attempt
func IsTransient(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// NewHTTPClient returns the client shared by the content APIs
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// requester performs JSON requests with a single bounded retry
type requester struct {
	service string
	client  *http.Client
	retries int
	backoff time.Duration
}

func newRequester(service string, client *http.Client) *requester {
	if client == nil {
		client = NewHTTPClient(30 * time.Second)
	}
	return &requester{service: service, client: client, retries: 1, backoff: 500 * time.Millisecond}
}

func (r *requester) getJSON(ctx context.Context, url string, out any) error {
	return r.do(ctx, http.MethodGet, url, nil, out)
}

func (r *requester) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", r.service, err)
	}
	return r.do(ctx, http.MethodPost, url, payload, out)
}

func (r *requester) do(ctx context.Context, method, url string, payload []byte, out any) error {
	for attempt := 0; ; attempt++ {
		err := r.once(ctx, method, url, payload, out)
		if err == nil {
			return nil
		}
		if attempt >= r.retries || !IsTransient(err) {
			return err
		}

		logger.Warn("retrying upstream request", "service", r.service, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return &UpstreamError{Service: r.service, Err: ctx.Err()}
		case <-time.After(r.backoff):
		}
	}
}

func (r *requester) once(ctx context.Context, method, url string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &UpstreamError{Service: r.service, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &UpstreamError{Service: r.service, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug("upstream error response", "service", r.service, "status", resp.StatusCode, "body", truncate(string(data), 200))
		return &UpstreamError{Service: r.service, StatusCode: resp.StatusCode}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, r.service, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
