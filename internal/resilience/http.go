// Package resilience wraps outbound HTTP calls with retries, exponential
// backoff and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Delay returns the wait before retry number attempt (zero based).
func (b BackoffConfig) Delay(attempt int) time.Duration {
	d := b.InitialInterval
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.MaxInterval > 0 && d >= b.MaxInterval {
			return b.MaxInterval
		}
	}
	if b.MaxInterval > 0 && d > b.MaxInterval {
		return b.MaxInterval
	}
	return d
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

// DefaultBackoff is used by every upstream client unless overridden.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")
	// ErrUnexpected marks non-2xx statuses that are not worth retrying.
	ErrUnexpected  = errors.New("unexpected status code")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// NewBreaker returns a circuit breaker with the settings shared by all upstreams.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// 4xx answers are the caller's fault, not an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnexpected)
		},
	})
}

// statusError carries the classified status and an optional server hint.
type statusError struct {
	kind       error
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string { return fmt.Sprintf("%v: %d", e.kind, e.code) }
func (e *statusError) Unwrap() error { return e.kind }

// checkStatus closes the body of any response it rejects.
func checkStatus(resp *http.Response) error {
	var kind error
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case resp.StatusCode >= 500:
		kind = ErrServerError
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		kind = ErrUnexpected
	default:
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	e := &statusError{kind: kind, code: resp.StatusCode}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.retryAfter = time.Duration(secs) * time.Second
	}
	return e
}

// Do sends the request built by buildRequest until it succeeds, a
// non-retryable status arrives, the breaker opens or retries run out. The
// caller owns the returned response body.
func Do(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, eris.New("resilience: http client not configured")
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, eris.New("resilience: invalid backoff configuration")
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := buildRequest()
		if err != nil {
			return nil, eris.Wrap(err, "resilience: build request")
		}

		out, err := cb.Execute(func() (interface{}, error) {
			resp, err := cfg.Client.Do(req.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			if err := checkStatus(resp); err != nil {
				return nil, err
			}
			return resp, nil
		})
		switch {
		case err == nil:
			return out.(*http.Response), nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		case errors.Is(err, ErrUnexpected), attempt >= cfg.Backoff.MaxRetries:
			return nil, err
		}

		delay := cfg.Backoff.Delay(attempt)
		var se *statusError
		if errors.As(err, &se) && se.retryAfter > delay {
			delay = se.retryAfter
			if cfg.Backoff.MaxInterval > 0 && delay > cfg.Backoff.MaxInterval {
				delay = cfg.Backoff.MaxInterval
			}
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
