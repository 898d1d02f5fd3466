package repository

import (
	"context"

	"feedwatch/internal/domain/entity"
)

// SourceFilter narrows List results. Zero values mean "any".
type SourceFilter struct {
	Kind       entity.SourceKind
	OnlyActive bool
}

type SourceRepository interface {
	// Get returns (nil, nil) when the source does not exist.
	Get(ctx context.Context, id int64) (*entity.Source, error)
	// GetByAddress returns (nil, nil) when no source has this (kind, address).
	GetByAddress(ctx context.Context, kind entity.SourceKind, address string) (*entity.Source, error)
	List(ctx context.Context, filter SourceFilter) ([]*entity.Source, error)
	// ListActive returns active sources ordered by id.
	ListActive(ctx context.Context) ([]*entity.Source, error)
	// Create inserts the source and sets its ID and CreatedAt.
	// It returns ErrDuplicate when (kind, address) is already present.
	Create(ctx context.Context, source *entity.Source) error
	// SetActive toggles the soft-delete flag. It returns entity.ErrNotFound for unknown ids.
	SetActive(ctx context.Context, id int64, active bool) error
}
