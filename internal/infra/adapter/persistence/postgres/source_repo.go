package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
)

type SourceRepo struct{ db *sql.DB }

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*entity.Source, error) {
	var (
		src  entity.Source
		kind string
	)
	if err := row.Scan(&src.ID, &kind, &src.Address, &src.Name, &src.Active, &src.CreatedAt); err != nil {
		return nil, err
	}
	src.Kind = entity.SourceKind(kind)
	return &src, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	const query = `
SELECT id, kind, address, name, active, created_at
FROM sources
WHERE id = $1`
	src, err := scanSource(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return src, nil
}

func (repo *SourceRepo) GetByAddress(ctx context.Context, kind entity.SourceKind, address string) (*entity.Source, error) {
	const query = `
SELECT id, kind, address, name, active, created_at
FROM sources
WHERE kind = $1 AND address = $2`
	src, err := scanSource(repo.db.QueryRowContext(ctx, query, string(kind), address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByAddress: %w", err)
	}
	return src, nil
}

func (repo *SourceRepo) List(ctx context.Context, filter repository.SourceFilter) ([]*entity.Source, error) {
	query, args, err := buildSourceListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("List: build query: %w", err)
	}
	return repo.query(ctx, "List", query, args...)
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	const query = `
SELECT id, kind, address, name, active, created_at
FROM sources
WHERE active = TRUE
ORDER BY id ASC`
	return repo.query(ctx, "ListActive", query)
}

func (repo *SourceRepo) query(ctx context.Context, op, query string, args ...interface{}) ([]*entity.Source, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 16)
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, src *entity.Source) error {
	const query = `
INSERT INTO sources (kind, address, name, active, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (kind, address) DO NOTHING
RETURNING id`
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	err := repo.db.QueryRowContext(ctx, query,
		string(src.Kind), src.Address, strings.TrimSpace(src.Name), src.Active, src.CreatedAt,
	).Scan(&src.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("Create: %w", repository.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *SourceRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE sources SET active = $1 WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("SetActive: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetActive: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("SetActive: %w", entity.ErrNotFound)
	}
	return nil
}
