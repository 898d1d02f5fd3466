// Package draft implements the review workflow over staged drafts.
package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var ErrDraftNotFound = errors.New("draft not found")

// Service provides draft review use cases.
type Service struct {
	Repo repository.DraftRepository
	Now  func() time.Time
}

// List returns drafts newest first. A nil status lists every status.
// limit <= 0 selects DefaultListLimit; larger values are capped at MaxListLimit.
func (s *Service) List(ctx context.Context, status *entity.DraftStatus, limit int) ([]*entity.Draft, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	drafts, err := s.Repo.List(ctx, repository.DraftFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Draft, error) {
	if id <= 0 {
		return nil, &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	d, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	if d == nil {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

// Transition moves a draft to status. Moving to new clears ProcessedAt;
// every other move stamps it. Transitions the lifecycle forbids return
// entity.ErrInvalidTransition.
func (s *Service) Transition(ctx context.Context, id int64, to entity.DraftStatus) (*entity.Draft, error) {
	if _, err := entity.ParseDraftStatus(string(to)); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, d.Status, to)
	}

	var processedAt *time.Time
	if to != entity.DraftStatusNew {
		now := s.now()
		processedAt = &now
	}
	if err := s.Repo.UpdateStatus(ctx, id, to, processedAt); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("update draft status: %w", err)
	}

	slog.Info("draft status changed",
		slog.Int64("draft_id", id),
		slog.String("from", string(d.Status)),
		slog.String("to", string(to)))

	d.Status = to
	d.ProcessedAt = processedAt
	return d, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
