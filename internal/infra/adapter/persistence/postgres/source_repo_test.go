package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/adapter/persistence/postgres"
	"feedwatch/internal/repository"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

var sourceCols = []string{"id", "kind", "address", "name", "active", "created_at"}

func sourceRow(src *entity.Source) *sqlmock.Rows {
	return sqlmock.NewRows(sourceCols).AddRow(
		src.ID, string(src.Kind), src.Address, src.Name, src.Active, src.CreatedAt,
	)
}

/* ──────────────────────────────── 1. Get ──────────────────────────────── */

func TestSourceRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := &entity.Source{
		ID: 1, Kind: entity.SourceKindChannel, Address: "@tonblockchain", Name: "TON",
		Active: true, CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sources`)).
		WithArgs(int64(1)).
		WillReturnRows(sourceRow(want))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSourceRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM sources`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(sourceCols))

	got, err := postgres.NewSourceRepo(db).Get(context.Background(), 9)
	if err != nil || got != nil {
		t.Fatalf("Get got=%v err=%v, want nil, nil", got, err)
	}
}

/* ──────────────────────────────── 2. GetByAddress ──────────────────────────────── */

func TestSourceRepo_GetByAddress(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	src := &entity.Source{ID: 3, Kind: entity.SourceKindFeed, Address: "https://example.com/rss", Active: false}
	mock.ExpectQuery(`WHERE kind = \$1 AND address = \$2`).
		WithArgs("feed", "https://example.com/rss").
		WillReturnRows(sourceRow(src))

	got, err := postgres.NewSourceRepo(db).GetByAddress(context.Background(), entity.SourceKindFeed, "https://example.com/rss")
	if err != nil {
		t.Fatalf("GetByAddress err=%v", err)
	}
	if got.ID != 3 || got.Active {
		t.Fatalf("GetByAddress got=%+v", got)
	}
}

/* ──────────────────────────────── 3. List ──────────────────────────────── */

func TestSourceRepo_List_Filtered(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sources WHERE kind = $1 AND active = $2 ORDER BY id ASC`)).
		WithArgs("channel", true).
		WillReturnRows(sourceRow(&entity.Source{ID: 1, Kind: entity.SourceKindChannel, Address: "@durov", Active: true}))

	got, err := postgres.NewSourceRepo(db).List(context.Background(), repository.SourceFilter{
		Kind: entity.SourceKindChannel, OnlyActive: true,
	})
	if err != nil || len(got) != 1 {
		t.Fatalf("List err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

/* ──────────────────────────────── 4. ListActive ──────────────────────────────── */

func TestSourceRepo_ListActive(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	rows := sqlmock.NewRows(sourceCols).
		AddRow(1, "feed", "https://example.com/rss", "Example", true, now).
		AddRow(2, "channel", "@durov", "", true, now)

	mock.ExpectQuery(`WHERE active = TRUE`).WillReturnRows(rows)

	sources, err := postgres.NewSourceRepo(db).ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive err=%v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("ListActive expected 2 sources, got %d", len(sources))
	}
	if sources[1].Kind != entity.SourceKindChannel {
		t.Fatalf("kind = %q", sources[1].Kind)
	}
}

func TestSourceRepo_ListActive_QueryError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM sources`).WillReturnError(errors.New("connection refused"))

	if _, err := postgres.NewSourceRepo(db).ListActive(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

/* ──────────────────────────────── 5. Create ──────────────────────────────── */

func TestSourceRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sources`)).
		WithArgs("channel", "@durov", "Durov", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	src := &entity.Source{Kind: entity.SourceKindChannel, Address: "@durov", Name: " Durov ", Active: true}
	if err := postgres.NewSourceRepo(db).Create(context.Background(), src); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if src.ID != 7 || src.CreatedAt.IsZero() {
		t.Fatalf("Create did not populate id/created_at: %+v", src)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSourceRepo_Create_Duplicate(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`ON CONFLICT \(kind, address\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := postgres.NewSourceRepo(db).Create(context.Background(), &entity.Source{Kind: entity.SourceKindFeed, Address: "https://example.com/rss"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("Create err=%v, want ErrDuplicate", err)
	}
}

/* ──────────────────────────────── 6. SetActive ──────────────────────────────── */

func TestSourceRepo_SetActive(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE sources SET active`).
		WithArgs(false, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sources SET active`).
		WithArgs(false, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewSourceRepo(db)
	if err := repo.SetActive(context.Background(), 1, false); err != nil {
		t.Fatalf("SetActive err=%v", err)
	}
	if err := repo.SetActive(context.Background(), 99, false); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("SetActive missing err=%v, want ErrNotFound", err)
	}
}
