package resilience

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ThrottledError indicates the upstream answered 429 Too Many Requests.
// It is the only error class the client retries.
type ThrottledError struct {
	URL string
}

func (e *ThrottledError) Error() string {
	return "rate limited by upstream: " + e.URL
}

// APIError is any non-success, non-throttling HTTP status. It is never
// retried; open-data APIs answer 4xx/5xx deterministically enough that
// retrying only burns quota.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return "upstream returned " + http.StatusText(e.StatusCode) + ": " + e.URL
}

// ClientConfig holds configuration for the throttle-aware HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming.
	Name string

	// Timeout is the request timeout for individual HTTP calls.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxAttempts is the total number of attempts for a throttled call,
	// including the first. Default: 3
	MaxAttempts uint64

	// Backoff is the base sleep after a throttled attempt; attempt n
	// sleeps Backoff*n (linear). Default: 1 second
	Backoff time.Duration

	// OnRetry is invoked before each backoff sleep with the error that
	// triggered it and the sleep duration. Used for logging; tests hook
	// it to observe the schedule.
	OnRetry func(err error, next time.Duration)

	// CircuitBreaker overrides the circuit breaker configuration.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultClientConfig returns sensible defaults for open-data APIs.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:           name,
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		Backoff:        time.Second,
		CircuitBreaker: &cbConfig,
	}
}

// Client executes HTTP requests with circuit breaker protection and
// bounded, linear retry on 429 responses. Every other failure mode
// (network error, non-2xx status) propagates immediately.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new throttle-aware HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Second
	}

	var cb *gobreaker.CircuitBreaker[*http.Response]
	if cfg.CircuitBreaker != nil {
		cb = NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker) //nolint:bodyclose // type param, not response
	} else {
		defaultCB := DefaultCircuitBreakerConfig(cfg.Name)
		cb = NewCircuitBreaker[*http.Response](defaultCB) //nolint:bodyclose // type param, not response
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: cb,
		config:         cfg,
	}
}

// Do executes an HTTP request. A 2xx response is returned with its body
// open; the caller is responsible for closing it. A 429 is retried up to
// MaxAttempts times total, sleeping Backoff*attempt between tries; if
// attempts exhaust, the last ThrottledError is returned. Any other
// non-2xx status returns an APIError without retrying.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var lastResp *http.Response

	operation := func() error {
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes on success
			reqClone := req.Clone(ctx)
			r, err := c.httpClient.Do(reqClone)
			if err != nil {
				return nil, err
			}

			switch {
			case r.StatusCode == http.StatusTooManyRequests:
				drain(r)
				return nil, &ThrottledError{URL: req.URL.String()}
			case r.StatusCode < 200 || r.StatusCode > 299:
				drain(r)
				return nil, &APIError{StatusCode: r.StatusCode, URL: req.URL.String()}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}

			var throttled *ThrottledError
			if errors.As(err, &throttled) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}

		lastResp = resp
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: c.config.Backoff}, c.config.MaxAttempts-1),
		ctx,
	)

	if err := backoff.RetryNotify(operation, bo, c.config.OnRetry); err != nil {
		return nil, err
	}
	return lastResp, nil
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// linearBackOff implements backoff.BackOff with a linear schedule:
// base*1, base*2, base*3, and so on.
type linearBackOff struct {
	base    time.Duration
	attempt int64
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// drain discards and closes a response body so the underlying
// connection can be reused.
func drain(r *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
	_ = r.Body.Close()
}
