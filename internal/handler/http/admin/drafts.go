package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/handler/http/respond"
	draftUC "feedwatch/internal/usecase/draft"
)

type ListDraftsHandler struct{ Svc DraftService }

// ServeHTTP handles GET /drafts?status=&limit=.
func (h ListDraftsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status *entity.DraftStatus
	if s := q.Get("status"); s != "" {
		parsed, err := entity.ParseDraftStatus(s)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		status = &parsed
	}

	limit := 0
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	drafts, err := h.Svc.List(r.Context(), status, limit)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DraftDTO, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, toDraftDTO(d))
	}
	respond.JSON(w, http.StatusOK, out)
}

type GetDraftHandler struct{ Svc DraftService }

// ServeHTTP handles GET /drafts/{id}.
func (h GetDraftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	d, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeDraftError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDraftDTO(d))
}

type UpdateDraftHandler struct{ Svc DraftService }

// ServeHTTP handles PATCH /drafts/{id} {"status": "..."}.
func (h UpdateDraftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.Status == "" {
		respond.Error(w, http.StatusBadRequest, errors.New("status required"))
		return
	}

	d, err := h.Svc.Transition(r.Context(), id, entity.DraftStatus(req.Status))
	if err != nil {
		writeDraftError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDraftDTO(d))
}

func writeDraftError(w http.ResponseWriter, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.Is(err, draftUC.ErrDraftNotFound):
		respond.SafeError(w, http.StatusNotFound, err)
	case errors.Is(err, entity.ErrInvalidTransition):
		respond.Fail(w, http.StatusConflict, respond.NewAppError(http.StatusConflict, "status transition not allowed", err))
	case errors.As(err, &verr):
		respond.SafeError(w, http.StatusBadRequest, err)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}
