package twilio

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Transient reports whether err looks like provider or network trouble rather
// than a problem with the request itself.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == http.StatusTooManyRequests, he.StatusCode == http.StatusRequestTimeout:
			return true
		case he.StatusCode >= 500 && he.StatusCode <= 599:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// NewCircuitBreaker returns a breaker for WithBreaker that only counts
// Transient errors as failures, so 4xx responses never open it.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
		IsSuccessful: func(err error) bool {
			return !Transient(err)
		},
	})
}

func (c *Client) guarded(ctx context.Context, call func() ([]byte, error)) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.breaker == nil {
		return call()
	}
	out, err := c.breaker.Execute(func() (any, error) { return call() })
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}
