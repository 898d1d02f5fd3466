// Package admin serves the operator API: manual monitoring runs, source
// administration, draft review and the manual digest. Every route requires the admin token.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/usecase/digest"
	"feedwatch/internal/usecase/monitor"
	srcUC "feedwatch/internal/usecase/source"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

type SourceService interface {
	Add(ctx context.Context, in srcUC.AddInput) (*entity.Source, error)
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, kind entity.SourceKind, onlyActive bool) ([]*entity.Source, error)
}

type DraftService interface {
	List(ctx context.Context, status *entity.DraftStatus, limit int) ([]*entity.Draft, error)
	Get(ctx context.Context, id int64) (*entity.Draft, error)
	Transition(ctx context.Context, id int64, to entity.DraftStatus) (*entity.Draft, error)
}

type CycleRunner interface {
	RunCycle(ctx context.Context) (*monitor.CycleStats, error)
}

type DigestService interface {
	Send(ctx context.Context) (*digest.Result, error)
}

// Deps are the services behind the admin routes. A nil Digest answers
// /digest/send with 503.
type Deps struct {
	Token   string
	Sources SourceService
	Drafts  DraftService
	Runner  CycleRunner
	Digest  DigestService
}

// NewRouter returns the admin routes, relative to their mount point:
//
//	POST   /monitor/run
//	GET    /sources
//	POST   /sources
//	DELETE /sources/{id}
//	GET    /drafts
//	GET    /drafts/{id}
//	PATCH  /drafts/{id}
//	POST   /digest/send
func NewRouter(d Deps, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Use(BearerAuth(d.Token))
	r.Use(limitBody)

	r.Method(http.MethodPost, "/monitor/run", RunMonitorHandler{d.Runner})

	r.Method(http.MethodGet, "/sources", ListSourcesHandler{d.Sources})
	r.Method(http.MethodPost, "/sources", CreateSourceHandler{d.Sources})
	r.Method(http.MethodDelete, "/sources/{id}", DeleteSourceHandler{d.Sources})

	r.Method(http.MethodGet, "/drafts", ListDraftsHandler{d.Drafts})
	r.Method(http.MethodGet, "/drafts/{id}", GetDraftHandler{d.Drafts})
	r.Method(http.MethodPatch, "/drafts/{id}", UpdateDraftHandler{d.Drafts})

	r.Method(http.MethodPost, "/digest/send", SendDigestHandler{d.Digest})

	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &entity.ValidationError{Field: "id", Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}
