package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
)

// AddInput represents the input parameters for adding a source.
type AddInput struct {
	Kind    entity.SourceKind
	Address string
	Name    string
}

// Service provides source management use cases.
type Service struct {
	Repo repository.SourceRepository
}

// Add validates and stores a source. Adding a known (kind, address) is not
// an error: an inactive source is reactivated and the stored row returned.
func (s *Service) Add(ctx context.Context, in AddInput) (*entity.Source, error) {
	src := &entity.Source{
		Kind:    in.Kind,
		Address: in.Address,
		Name:    in.Name,
		Active:  true,
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("validate source: %w", err)
	}

	existing, err := s.Repo.GetByAddress(ctx, src.Kind, src.Address)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	if existing != nil {
		return s.reactivate(ctx, existing)
	}

	if err := s.Repo.Create(ctx, src); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create source: %w", err)
		}
		// lost a race with a concurrent Add
		existing, err := s.Repo.GetByAddress(ctx, src.Kind, src.Address)
		if err != nil || existing == nil {
			return nil, fmt.Errorf("create source: %w", repository.ErrDuplicate)
		}
		return s.reactivate(ctx, existing)
	}

	slog.Info("source added",
		slog.Int64("source_id", src.ID),
		slog.String("source_kind", string(src.Kind)),
		slog.String("source_address", src.Address))
	return src, nil
}

func (s *Service) reactivate(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	if src.Active {
		return src, nil
	}
	if err := s.Repo.SetActive(ctx, src.ID, true); err != nil {
		return nil, fmt.Errorf("reactivate source: %w", err)
	}
	src.Active = true
	slog.Info("source reactivated",
		slog.Int64("source_id", src.ID),
		slog.String("source_address", src.Address))
	return src, nil
}

// Deactivate soft-deletes a source. Its checkpoint and drafts are kept.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	if err := s.Repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return ErrSourceNotFound
		}
		return fmt.Errorf("deactivate source: %w", err)
	}
	return nil
}

// List returns sources of kind (empty for all kinds).
func (s *Service) List(ctx context.Context, kind entity.SourceKind, onlyActive bool) ([]*entity.Source, error) {
	sources, err := s.Repo.List(ctx, repository.SourceFilter{Kind: kind, OnlyActive: onlyActive})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// Seed inserts every address of kind that is not stored yet. Known rows are
// left untouched, so a source deactivated by an admin stays inactive across
// restarts. Invalid addresses are logged and skipped so one typo in the
// watchlist does not block the rest. It returns the number of sources
// inserted or already present.
func (s *Service) Seed(ctx context.Context, kind entity.SourceKind, addresses []string) (int, error) {
	n := 0
	for _, addr := range addresses {
		src := &entity.Source{Kind: kind, Address: addr, Active: true}
		if err := src.Validate(); err != nil {
			slog.Warn("skipping invalid watchlist entry",
				slog.String("source_kind", string(kind)),
				slog.String("address", addr),
				slog.Any("error", err))
			continue
		}

		existing, err := s.Repo.GetByAddress(ctx, src.Kind, src.Address)
		if err != nil {
			return n, fmt.Errorf("get source: %w", err)
		}
		if existing != nil {
			n++
			continue
		}

		if err := s.Repo.Create(ctx, src); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				n++
				continue
			}
			return n, fmt.Errorf("create source: %w", err)
		}
		slog.Info("source seeded",
			slog.Int64("source_id", src.ID),
			slog.String("source_kind", string(src.Kind)),
			slog.String("source_address", src.Address))
		n++
	}
	return n, nil
}
