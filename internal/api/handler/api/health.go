package api

import (
	"net/http"
	"time"

	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/temporal"
)

// StatsSource reports derivation cache counters.
type StatsSource interface {
	DeriverStats() temporal.DeriverStats
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	version string
	started time.Time
	stats   StatsSource
}

// NewHealthHandler creates a health handler. stats may be nil.
func NewHealthHandler(version string, stats StatsSource) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now(), stats: stats}
}

// Health reports status, version and uptime.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.stats != nil {
		body["deriver"] = h.stats.DeriverStats()
	}
	response.JSON(w, http.StatusOK, body)
}
