package admin

import (
	"log/slog"
	"net/http"

	"feedwatch/internal/handler/http/requestid"
	"feedwatch/internal/handler/http/respond"
	"feedwatch/internal/usecase/monitor"
)

type RunMonitorHandler struct{ Runner CycleRunner }

// ServeHTTP handles POST /monitor/run. It blocks until the cycle ends and
// reports failed when the cycle aborted or any source failed.
func (h RunMonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Runner.RunCycle(r.Context())
	if err := monitor.Outcome(stats, err); err != nil {
		slog.Warn("manual monitoring cycle failed",
			slog.String("request_id", requestid.FromContext(r.Context())),
			slog.Any("error", err))
		respond.JSON(w, http.StatusInternalServerError, runResponse{Status: "failed", Stats: toCycleStatsDTO(stats)})
		return
	}
	respond.JSON(w, http.StatusOK, runResponse{Status: "ok", Stats: toCycleStatsDTO(stats)})
}
