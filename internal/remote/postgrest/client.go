// Package postgrest reads business ideas and saved flags from a hosted
// PostgREST endpoint (Supabase's REST API).
//
// Every request is paced by a token-bucket limiter, retried on 429 and 5xx
// with exponential backoff, and guarded by a circuit breaker so a dead
// backend fails fast instead of stalling the UI behind retries.
package postgrest

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

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/abelbrown/ideadeck/internal/config"
	"github.com/abelbrown/ideadeck/internal/logging"
	"github.com/abelbrown/ideadeck/internal/model"
	"github.com/abelbrown/ideadeck/internal/otel"
	"github.com/abelbrown/ideadeck/internal/query"
	"github.com/abelbrown/ideadeck/internal/remote"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("postgrest: circuit open")

// maxRetryAfter caps a server-requested Retry-After delay.
const maxRetryAfter = 30 * time.Second

// maxBody caps the bytes read from a single response.
const maxBody = 10 << 20

// Client talks to the PostgREST API. It implements remote.Store.
type Client struct {
	endpoint    string // .../rest/v1
	anonKey     string
	accessToken string
	table       string
	savedTable  string

	client     *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	events     *otel.Logger
}

var _ remote.Store = (*Client)(nil)

// New creates a Client from the supabase section of the config. events may be nil.
func New(cfg config.SupabaseConfig, events *otel.Logger) *Client {
	table := cfg.Table
	if table == "" {
		table = "business_ideas"
	}
	savedTable := cfg.SavedTable
	if savedTable == "" {
		savedTable = "saved_ideas"
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	c := &Client{
		endpoint:    strings.TrimRight(cfg.URL, "/") + "/rest/v1",
		anonKey:     cfg.AnonKey,
		accessToken: cfg.AccessToken,
		table:       table,
		savedTable:  savedTable,
		client:      &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay(),
		events:      events,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgrest",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			c.events.Emit(otel.Event{
				Level: otel.LevelWarn,
				Kind:  otel.KindBreakerTrip,
				Comp:  "postgrest",
				Msg:   from.String() + " -> " + to.String(),
			})
		},
	})
	return c
}

// breakerSuccess keeps client errors and cancellations from tripping the
// breaker; only transport failures, 429 and 5xx count against the backend.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *remote.StoreError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 && se.Status != http.StatusTooManyRequests {
		return true
	}
	return false
}

// APIError is the JSON error body PostgREST returns.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// codeNoRows is PostgREST's "singular response requested, zero rows" error.
const codeNoRows = "PGRST116"

func parseAPIError(status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.Code != "" || apiErr.Message != "") {
		return &apiErr
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}
	return errors.New(text)
}

// Count returns the exact number of rows matching q.
func (c *Client) Count(ctx context.Context, q query.Spec) (int, error) {
	v := q.Values()
	v.Set("select", query.ColID)
	resp, err := c.do(ctx, request{
		op:     "count",
		method: http.MethodHead,
		table:  c.table,
		query:  v,
		header: http.Header{"Prefer": {"count=exact"}},
	})
	if err != nil {
		return 0, err
	}
	n, err := parseContentRange(resp.header.Get("Content-Range"))
	if err != nil {
		return 0, &remote.StoreError{Op: "count", Status: resp.status, Err: err}
	}
	return n, nil
}

// parseContentRange reads the total from "0-9/42" or "*/42".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad count in Content-Range %q", h)
	}
	return n, nil
}

// Select returns the rows matching q.
func (c *Client) Select(ctx context.Context, q query.Spec) ([]model.Idea, error) {
	resp, err := c.do(ctx, request{
		op:     "select",
		method: http.MethodGet,
		table:  c.table,
		query:  q.Values(),
	})
	if err != nil {
		return nil, err
	}
	var ideas []model.Idea
	if err := json.Unmarshal(resp.body, &ideas); err != nil {
		return nil, &remote.StoreError{Op: "select", Status: resp.status, Err: fmt.Errorf("decode rows: %w", err)}
	}
	return ideas, nil
}

type request struct {
	op     string
	method string
	table  string
	query  url.Values
	body   []byte
	header http.Header
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do runs r through the circuit breaker and retry loop. Failures come
// back as *remote.StoreError.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(ctx, r)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &remote.StoreError{Op: r.op, Err: ErrCircuitOpen}
		}
		return nil, remote.Wrap(r.op, err)
	}
	return out.(*response), nil
}

// doWithRetry retries transport errors, 429 and 5xx with exponential
// backoff. On 429 the Retry-After header is honoured up to maxRetryAfter.
func (c *Client) doWithRetry(ctx context.Context, r request) (*response, error) {
	target := c.endpoint + "/" + r.table
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &remote.StoreError{Op: r.op, Err: fmt.Errorf("rate limiter wait: %w", err)}
		}

		var body io.Reader
		if r.body != nil {
			body = bytes.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, target, body)
		if err != nil {
			return nil, &remote.StoreError{Op: r.op, Err: fmt.Errorf("create request: %w", err)}
		}
		c.setHeaders(req, r)

		delay := c.backoff(attempt)
		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &remote.StoreError{Op: r.op, Err: ctx.Err()}
			}
			lastErr = &remote.StoreError{Op: r.op, Err: err}
		} else {
			data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			resp.Body.Close()
			if readErr != nil {
				lastErr = &remote.StoreError{Op: r.op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", readErr)}
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
			} else {
				se := &remote.StoreError{Op: r.op, Status: resp.StatusCode, Err: parseAPIError(resp.StatusCode, data)}
				if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
					return nil, se
				}
				lastErr = se
				if resp.StatusCode == http.StatusTooManyRequests {
					if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
						delay = ra
					}
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		c.events.Emit(otel.Event{
			Level: otel.LevelWarn,
			Kind:  otel.KindHTTPRetry,
			Comp:  "postgrest",
			Count: attempt + 1,
			Dur:   delay,
			Err:   lastErr.Error(),
		})
		select {
		case <-ctx.Done():
			return nil, &remote.StoreError{Op: r.op, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (c *Client) setHeaders(req *http.Request, r request) {
	req.Header.Set("apikey", c.anonKey)
	bearer := c.accessToken
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
}

// backoff returns retryDelay doubled per attempt.
func (c *Client) backoff(attempt int) time.Duration {
	return c.retryDelay << attempt
}

// retryAfter parses a delta-seconds Retry-After value, capped at maxRetryAfter.
func retryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
