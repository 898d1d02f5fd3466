package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedwatch/internal/infra/adapter/persistence/postgres"
)

func TestSettingRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM settings WHERE key = $1`)).
		WithArgs("checkpoint:feed:https://example.com/rss").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("2025-01-01T00:00:00Z"))
	mock.ExpectQuery(`FROM settings`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectQuery(`FROM settings`).
		WithArgs("broken").
		WillReturnError(errors.New("timeout"))

	repo := postgres.NewSettingRepo(db)

	value, ok, err := repo.Get(context.Background(), "checkpoint:feed:https://example.com/rss")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2025-01-01T00:00:00Z", value)

	_, ok, err = repo.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = repo.Get(context.Background(), "broken")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingRepo_Set(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("k", "v", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, postgres.NewSettingRepo(db).Set(context.Background(), "k", "v"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
