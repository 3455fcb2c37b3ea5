package handler

import (
	"log/slog"
	"net/http"

	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/stats"
)

// StatsHandler serves the admin dashboard and activity feed.
type StatsHandler struct {
	logger *slog.Logger
	stats  *stats.Service
}

func NewStatsHandler(logger *slog.Logger, statsService *stats.Service) *StatsHandler {
	return &StatsHandler{logger: logger, stats: statsService}
}

// Dashboard handles GET /stats/dashboard
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	dashboard, err := h.stats.Dashboard(r.Context(), actor)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, dashboard)
}

// Activity handles GET /activity
func (h *StatsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	feed, err := h.stats.ActivityFeed(r.Context(), actor,
		httputil.QueryInt(r, "skip", 0),
		httputil.QueryInt(r, "limit", 50),
	)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, feed)
}
