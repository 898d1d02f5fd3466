package repository

import (
	"context"
	"time"

	"feedwatch/internal/domain/entity"
)

// DraftFilter selects drafts for review listings.
type DraftFilter struct {
	Status *entity.DraftStatus // nil selects every status
	Kind   entity.SourceKind   // empty selects every kind
	Limit  int
}

type DraftRepository interface {
	// Exists reports whether a draft for (kind, url) was ever staged.
	Exists(ctx context.Context, kind entity.SourceKind, url string) (bool, error)
	// Insert stages a draft with status new and returns its id.
	// It returns ErrDuplicate when (kind, url) was staged before.
	Insert(ctx context.Context, draft *entity.Draft) (int64, error)
	// Get returns (nil, nil) when the draft does not exist.
	Get(ctx context.Context, id int64) (*entity.Draft, error)
	// List returns drafts newest first.
	List(ctx context.Context, filter DraftFilter) ([]*entity.Draft, error)
	// UpdateStatus sets status and processed_at (nil clears it).
	// It returns entity.ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id int64, status entity.DraftStatus, processedAt *time.Time) error
}
