// Package notify dispatches notifications about staged drafts to the
// enabled delivery channels. Each channel runs in its own goroutine behind
// a per-channel circuit breaker; the caller never waits for delivery.
package notify

import (
	"context"

	"feedwatch/internal/domain/entity"
)

// Channel is a notification delivery channel.
// Implementations must be safe for concurrent use and respect ctx.
type Channel interface {
	// Name is the lowercase identifier used in logs and metric labels.
	Name() string

	// IsEnabled reports whether the channel is configured.
	IsEnabled() bool

	// Send delivers a notification about draft.
	Send(ctx context.Context, draft *entity.Draft) error
}
