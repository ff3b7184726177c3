package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	// DefaultDelay is the pause after every upstream call.
	DefaultDelay = time.Second
	maxErrorBody = 512
)

// FetchError is returned for every failed upstream call: transport failure,
// non-2xx status or a body that cannot be decoded. Batch jobs log it and move
// on to the next symbol or page.
type FetchError struct {
	Source string
	Symbol string
	Page   string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	b.WriteString(": fetch")
	if e.Symbol != "" {
		fmt.Fprintf(&b, " symbol=%s", e.Symbol)
	}
	if e.Page != "" {
		fmt.Fprintf(&b, " page=%s", e.Page)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, " body=%q", e.Body)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err carries a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ErrEmptyPayload marks a 2xx response whose body carries no data.
var ErrEmptyPayload = errors.New("empty payload")

// Request describes one GET against a provider. Symbol and Page only feed
// error reporting.
type Request struct {
	Path   string
	Query  url.Values
	Symbol string
	Page   string
}

// Client performs rate-limited JSON GETs against one provider. Each ingestion
// run constructs its own Client; nothing is shared at package level.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL sets the provider root URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDelay overrides the pause after each call. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithName sets the provider name used in errors and logs.
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// NewClient constructs a provider client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		name:       "source",
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		delay:      DefaultDelay,
		sleep:      sleepWithContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// GetJSON issues req and decodes the body into out. The configured delay is
// applied after the call whatever its outcome.
func (c *Client) GetJSON(ctx context.Context, req Request, out any) error {
	defer c.sleep(ctx, c.delay)

	body, status, err := c.get(ctx, req)
	if err != nil {
		return c.fetchErr(req, status, body, err)
	}
	if status < 200 || status >= 300 {
		return c.fetchErr(req, status, body, fmt.Errorf("http status %d", status))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fetchErr(req, status, body, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, req Request) ([]byte, int, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) fetchErr(req Request, status int, body []byte, err error) *FetchError {
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &FetchError{
		Source: c.name,
		Symbol: req.Symbol,
		Page:   req.Page,
		Status: status,
		Body:   text,
		Err:    err,
	}
}

// EmptyPayloadError builds the FetchError for a successful but empty response.
func (c *Client) EmptyPayloadError(req Request) *FetchError {
	return &FetchError{Source: c.name, Symbol: req.Symbol, Page: req.Page, Status: http.StatusOK, Err: ErrEmptyPayload}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
