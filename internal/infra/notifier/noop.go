package notifier

import (
	"context"

	"feedwatch/internal/domain/entity"
)

// NoOpNotifier is used when notifications are disabled.
type NoOpNotifier struct{}

func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) NotifyDraft(ctx context.Context, draft *entity.Draft) error {
	return nil
}
