// Package resilience groups the fault tolerance helpers used around source
// fetches, notification delivery and database health checks.
//
//   - circuitbreaker wraps github.com/sony/gobreaker with named presets
//   - retry runs an operation with exponential backoff and jitter
//
// Usage:
//
//	cb := circuitbreaker.New(circuitbreaker.FeedFetchConfig())
//	items, err := circuitbreaker.Do(cb, func() ([]entity.RawItem, error) {
//	    return fetch(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.FeedFetchConfig(), func() error {
//	    return send(ctx)
//	})
package resilience
