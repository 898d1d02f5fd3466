// Package notifier delivers staged drafts to reviewers. The Telegram
// implementation sends a plain text message to each configured admin and
// paces deliveries per recipient; NoOpNotifier stands in when no bot token
// is configured.
package notifier

import (
	"context"
	"errors"

	"feedwatch/internal/domain/entity"
)

// ErrRateLimited is returned when the upstream asked us to slow down or
// the recipient is still inside a backoff window.
var ErrRateLimited = errors.New("notification rate limited")

// Notifier sends a notification about a newly staged draft.
// Implementations must respect context cancellation.
type Notifier interface {
	NotifyDraft(ctx context.Context, draft *entity.Draft) error
}
