// Package circuitbreaker wraps github.com/sony/gobreaker with the presets
// used for source fetches, notification channels and database health checks.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/resilience/retry"
)

// Config describes when a breaker opens and how it recovers.
type Config struct {
	Name string
	// MaxRequests may pass while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; zero never clears them.
	Interval time.Duration
	// Timeout is the open period before a half-open trial request.
	Timeout time.Duration
	// FailureThreshold is the failure ratio that opens the breaker.
	FailureThreshold float64
	// MinRequests must be seen before the ratio is considered.
	MinRequests uint32
	// Ignore, when set, marks errors that say nothing about the upstream's
	// health. They are returned to the caller but counted as successes.
	Ignore func(error) bool
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// FeedFetchConfig is shared by every feed. Counts reset each ten minutes,
// and a 4xx from one feed (a moved or deleted feed) is not held against
// the others.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      5,
		Interval:         10 * time.Minute,
		Timeout:          2 * time.Minute,
		FailureThreshold: 0.7,
		MinRequests:      10,
		Ignore:           isClientError,
	}
}

// ChannelFetchConfig guards the channel preview host. Every channel shares
// that one upstream, so a high failure ratio means the host is down.
func ChannelFetchConfig() Config {
	return Config{
		Name:             "channel-fetch",
		MaxRequests:      2,
		Interval:         10 * time.Minute,
		Timeout:          5 * time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      5,
		Ignore:           isClientError,
	}
}

// NotifyConfig is the preset for one notification channel.
func NotifyConfig(channel string) Config {
	return Config{
		Name:             "notify-" + channel,
		MaxRequests:      1,
		Interval:         5 * time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
}

// isClientError matches 4xx answers other than 408 and 429.
func isClientError(err error) bool {
	var httpErr *retry.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	code := httpErr.StatusCode
	return code >= 400 && code < 500 &&
		code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}

type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg. A cancelled context is never counted as an
// upstream failure. State changes are logged and exported as metrics.
func New(cfg Config) *CircuitBreaker {
	ignore := cfg.Ignore
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || (ignore != nil && ignore(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.RecordBreakerState(name, int(to), to.String(), true)
		},
	}
	metrics.RecordBreakerState(cfg.Name, int(gobreaker.StateClosed), "", false)

	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(st), name: cfg.Name}
}

// Execute runs fn unless the breaker is open, in which case it fails fast
// with gobreaker.ErrOpenState.
func (cb *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	return cb.breaker.Execute(fn)
}

// Do is Execute with a typed result.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	_, err := cb.breaker.Execute(func() (any, error) {
		v, err := fn()
		out = v
		return nil, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// IsOpenErr reports whether the breaker refused the call.
func IsOpenErr(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (cb *CircuitBreaker) Name() string           { return cb.name }
func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }
func (cb *CircuitBreaker) IsOpen() bool           { return cb.breaker.State() == gobreaker.StateOpen }

// Counts returns the counters of the current closed-state interval.
func (cb *CircuitBreaker) Counts() gobreaker.Counts { return cb.breaker.Counts() }
