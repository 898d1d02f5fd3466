// Package sqlite provides SQLite implementations of repository interfaces.
package sqlite

import (
	sq "github.com/Masterminds/squirrel"

	"feedwatch/internal/repository"
)

// lite renders squirrel statements with ? placeholders.
var lite = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var sourceColumns = []string{"id", "kind", "address", "name", "active", "created_at"}

var draftColumns = []string{
	"id", "source_kind", "source_name", "text", "source_url", "published_at",
	"keywords", "status", "created_at", "processed_at",
}

// buildSourceListQuery renders the filtered source listing.
func buildSourceListQuery(filter repository.SourceFilter) (string, []interface{}, error) {
	q := lite.Select(sourceColumns...).From("sources").OrderBy("id ASC")
	if filter.Kind != "" {
		q = q.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if filter.OnlyActive {
		q = q.Where(sq.Eq{"active": true})
	}
	return q.ToSql()
}

// buildDraftListQuery renders the review listing, newest first.
func buildDraftListQuery(filter repository.DraftFilter) (string, []interface{}, error) {
	q := lite.Select(draftColumns...).From("drafts").OrderBy("created_at DESC", "id DESC")
	if filter.Status != nil {
		q = q.Where(sq.Eq{"status": string(*filter.Status)})
	}
	if filter.Kind != "" {
		q = q.Where(sq.Eq{"source_kind": string(filter.Kind)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q.ToSql()
}
