package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/handler/http/respond"
	srcUC "feedwatch/internal/usecase/source"
)

type ListSourcesHandler struct{ Svc SourceService }

// ServeHTTP handles GET /sources?kind=&active=true.
func (h ListSourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var kind entity.SourceKind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := entity.ParseSourceKind(k)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		kind = parsed
	}
	onlyActive := r.URL.Query().Get("active") == "true"

	sources, err := h.Svc.List(r.Context(), kind, onlyActive)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]SourceDTO, 0, len(sources))
	for _, s := range sources {
		out = append(out, toSourceDTO(s))
	}
	respond.JSON(w, http.StatusOK, out)
}

type CreateSourceHandler struct{ Svc SourceService }

// ServeHTTP handles POST /sources {"kind","address","name"}.
// It is idempotent: a known source is returned (and reactivated) as is.
func (h CreateSourceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		Address string `json:"address"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.Kind == "" || req.Address == "" {
		respond.Error(w, http.StatusBadRequest, errors.New("kind and address required"))
		return
	}
	kind, err := entity.ParseSourceKind(req.Kind)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	src, err := h.Svc.Add(r.Context(), srcUC.AddInput{Kind: kind, Address: req.Address, Name: req.Name})
	if err != nil {
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toSourceDTO(src))
}

type DeleteSourceHandler struct{ Svc SourceService }

// ServeHTTP handles DELETE /sources/{id}. The source is deactivated, not removed.
func (h DeleteSourceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Svc.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, srcUC.ErrSourceNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
