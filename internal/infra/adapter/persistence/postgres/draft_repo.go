package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
)

type DraftRepo struct{ db *sql.DB }

func NewDraftRepo(db *sql.DB) repository.DraftRepository {
	return &DraftRepo{db: db}
}

func scanDraft(row rowScanner) (*entity.Draft, error) {
	var (
		d            entity.Draft
		kind, status string
		keywords     string
		published    sql.NullTime
		processed    sql.NullTime
	)
	if err := row.Scan(
		&d.ID, &kind, &d.SourceName, &d.Text, &d.SourceURL, &published,
		&keywords, &status, &d.CreatedAt, &processed,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &d.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	d.SourceKind = entity.SourceKind(kind)
	d.Status = entity.DraftStatus(status)
	if published.Valid {
		t := published.Time
		d.PublishedAt = &t
	}
	if processed.Valid {
		t := processed.Time
		d.ProcessedAt = &t
	}
	return &d, nil
}

func (repo *DraftRepo) Exists(ctx context.Context, kind entity.SourceKind, url string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM drafts WHERE source_kind = $1 AND source_url = $2)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, string(kind), url).Scan(&exists); err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (repo *DraftRepo) Insert(ctx context.Context, d *entity.Draft) (int64, error) {
	const query = `
INSERT INTO drafts (source_kind, source_name, text, source_url, published_at, keywords, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (source_kind, source_url) DO NOTHING
RETURNING id`
	keywords, err := json.Marshal(d.Keywords)
	if err != nil {
		return 0, fmt.Errorf("Insert: marshal keywords: %w", err)
	}
	if d.Status == "" {
		d.Status = entity.DraftStatusNew
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	err = repo.db.QueryRowContext(ctx, query,
		string(d.SourceKind), d.SourceName, d.Text, d.SourceURL, d.PublishedAt,
		string(keywords), string(d.Status), d.CreatedAt,
	).Scan(&d.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("Insert: %w", repository.ErrDuplicate)
	}
	if err != nil {
		return 0, fmt.Errorf("Insert: %w", err)
	}
	return d.ID, nil
}

func (repo *DraftRepo) Get(ctx context.Context, id int64) (*entity.Draft, error) {
	const query = `
SELECT id, source_kind, source_name, text, source_url, published_at,
       keywords, status, created_at, processed_at
FROM drafts
WHERE id = $1`
	d, err := scanDraft(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return d, nil
}

func (repo *DraftRepo) List(ctx context.Context, filter repository.DraftFilter) ([]*entity.Draft, error) {
	query, args, err := buildDraftListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("List: build query: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	drafts := make([]*entity.Draft, 0, max(filter.Limit, 0))
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (repo *DraftRepo) UpdateStatus(ctx context.Context, id int64, status entity.DraftStatus, processedAt *time.Time) error {
	const query = `UPDATE drafts SET status = $1, processed_at = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, string(status), processedAt, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateStatus: %w", entity.ErrNotFound)
	}
	return nil
}
