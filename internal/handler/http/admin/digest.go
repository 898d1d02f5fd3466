package admin

import (
	"errors"
	"net/http"

	"feedwatch/internal/handler/http/respond"
)

var errDigestDisabled = errors.New("digest is not configured")

type SendDigestHandler struct{ Svc DigestService }

// ServeHTTP handles POST /digest/send. A manual send ignores the once per
// day limit and counts as today's digest.
func (h SendDigestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		respond.Error(w, http.StatusServiceUnavailable, errDigestDisabled)
		return
	}
	res, err := h.Svc.Send(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
