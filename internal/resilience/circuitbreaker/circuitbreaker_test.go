package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/resilience/retry"
)

var errUpstream = errors.New("upstream failed")

func quickConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Timeout:          30 * time.Millisecond,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func fail() (any, error) { return nil, errUpstream }

func TestExecute_PassesResultThrough(t *testing.T) {
	cb := New(quickConfig("exec-ok"))

	got, err := cb.Execute(func() (any, error) { return "payload", nil })
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "exec-ok", cb.Name())
}

func TestExecute_OpensAndRecovers(t *testing.T) {
	cb := New(quickConfig("exec-trip"))

	for range 2 {
		_, err := cb.Execute(fail)
		require.ErrorIs(t, err, errUpstream)
	}
	require.True(t, cb.IsOpen())

	called := false
	_, err := cb.Execute(func() (any, error) { called = true; return nil, nil })
	assert.True(t, IsOpenErr(err))
	assert.False(t, called)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	_, err = cb.Execute(func() (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := New(quickConfig("exec-reopen"))
	for range 2 {
		_, _ = cb.Execute(fail)
	}
	time.Sleep(50 * time.Millisecond)

	_, err := cb.Execute(fail)
	require.ErrorIs(t, err, errUpstream)
	assert.True(t, cb.IsOpen())
}

func TestMinRequestsGuardsTheRatio(t *testing.T) {
	cfg := quickConfig("min-requests")
	cfg.MinRequests = 4
	cb := New(cfg)

	for range 3 {
		_, _ = cb.Execute(fail)
	}
	assert.False(t, cb.IsOpen())
	assert.EqualValues(t, 3, cb.Counts().TotalFailures)

	_, _ = cb.Execute(fail)
	assert.True(t, cb.IsOpen())
}

func TestCancellationIsNotAFailure(t *testing.T) {
	cb := New(quickConfig("cancelled"))

	for range 5 {
		_, err := cb.Execute(func() (any, error) {
			return nil, fmt.Errorf("fetch: %w", context.Canceled)
		})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.False(t, cb.IsOpen())
	assert.Zero(t, cb.Counts().TotalFailures)
}

func TestIgnoredErrorsAreReturnedButNotCounted(t *testing.T) {
	cfg := quickConfig("ignored")
	cfg.Ignore = isClientError
	cb := New(cfg)

	gone := &retry.HTTPError{StatusCode: http.StatusGone}
	for range 4 {
		_, err := cb.Execute(func() (any, error) { return nil, gone })
		require.ErrorIs(t, err, gone)
	}
	assert.False(t, cb.IsOpen())
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", &retry.HTTPError{StatusCode: 404}, true},
		{"wrapped forbidden", fmt.Errorf("get: %w", &retry.HTTPError{StatusCode: 403}), true},
		{"too many requests", &retry.HTTPError{StatusCode: 429}, false},
		{"request timeout", &retry.HTTPError{StatusCode: 408}, false},
		{"server error", &retry.HTTPError{StatusCode: 502}, false},
		{"plain error", errUpstream, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isClientError(tt.err))
		})
	}
}

func TestDo_Typed(t *testing.T) {
	cb := New(quickConfig("typed"))

	n, err := Do(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = Do(cb, func() (int, error) { return 7, errUpstream })
	require.ErrorIs(t, err, errUpstream)
	assert.Zero(t, n)
}

func TestIsOpenErr(t *testing.T) {
	assert.True(t, IsOpenErr(gobreaker.ErrOpenState))
	assert.True(t, IsOpenErr(fmt.Errorf("wrapped: %w", gobreaker.ErrTooManyRequests)))
	assert.False(t, IsOpenErr(errUpstream))
	assert.False(t, IsOpenErr(nil))
}

func TestStateIsExported(t *testing.T) {
	cb := New(quickConfig("exported"))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("exported")))

	for range 2 {
		_, _ = cb.Execute(fail)
	}
	assert.Equal(t, float64(gobreaker.StateOpen),
		testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("exported")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(metrics.CircuitBreakerTransitions.WithLabelValues("exported", "open")))
}

func TestPresets(t *testing.T) {
	tests := []struct {
		cfg      Config
		name     string
		ignores  bool
		minReqs  uint32
		maxTrial uint32
	}{
		{DefaultConfig("x"), "x", false, 5, 3},
		{FeedFetchConfig(), "feed-fetch", true, 10, 5},
		{ChannelFetchConfig(), "channel-fetch", true, 5, 2},
		{NotifyConfig("telegram"), "notify-telegram", false, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.cfg.Name)
			assert.Equal(t, tt.ignores, tt.cfg.Ignore != nil)
			assert.Equal(t, tt.minReqs, tt.cfg.MinRequests)
			assert.Equal(t, tt.maxTrial, tt.cfg.MaxRequests)
			assert.Positive(t, tt.cfg.Timeout)
			assert.Greater(t, tt.cfg.FailureThreshold, 0.0)
			assert.LessOrEqual(t, tt.cfg.FailureThreshold, 1.0)
		})
	}
}
