package admin

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"feedwatch/internal/handler/http/requestid"
	"feedwatch/internal/handler/http/respond"
)

var errUnauthorized = errors.New("unauthorized")

// BearerAuth rejects requests whose Authorization header does not carry
// token. An empty token rejects every request.
func BearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || len(want) == 0 || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				slog.Warn("admin request rejected",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				w.Header().Set("WWW-Authenticate", `Bearer realm="feedwatch"`)
				respond.Error(w, http.StatusUnauthorized, errUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
