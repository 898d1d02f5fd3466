package notify

import (
	"context"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/notifier"
)

// TelegramChannel adapts a notifier.Notifier to the Channel interface.
type TelegramChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewTelegramChannel wraps n. A nil n yields a disabled channel backed by
// the no-op notifier.
func NewTelegramChannel(n notifier.Notifier) *TelegramChannel {
	if n == nil {
		return &TelegramChannel{notifier: notifier.NewNoOpNotifier()}
	}
	return &TelegramChannel{notifier: n, enabled: true}
}

func (c *TelegramChannel) Name() string {
	return "telegram"
}

func (c *TelegramChannel) IsEnabled() bool {
	return c.enabled
}

func (c *TelegramChannel) Send(ctx context.Context, draft *entity.Draft) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if draft == nil || draft.SourceURL == "" {
		return ErrInvalidDraft
	}
	return c.notifier.NotifyDraft(ctx, draft)
}
