package handler

import (
	"net/http"

	"mubot/internal/service"
)

// HeartbeatHandler exposes the reconciliation pass over HTTP, for manual
// triggering alongside the cron-invoked binary
type HeartbeatHandler struct {
	runner *service.ReconciliationRunner
}

// NewHeartbeatHandler creates a new heartbeat handler
func NewHeartbeatHandler(runner *service.ReconciliationRunner) *HeartbeatHandler {
	return &HeartbeatHandler{runner: runner}
}

// Run handles POST /heartbeat/run - executes one reconciliation pass and
// returns its summary. Safe to invoke more often than necessary.
func (h *HeartbeatHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, summary)
}
