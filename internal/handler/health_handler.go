package handler

import (
	"database/sql"
	"net/http"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db *sql.DB
}

// NewHealthHandler creates a new HealthHandler instance. db may be nil
// when running on the in-memory backend.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HandleHealth handles GET requests to the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "disconnected",
			})
			return
		}
		WriteOK(w, map[string]string{"status": "healthy", "database": "connected"})
		return
	}

	WriteOK(w, map[string]string{"status": "healthy", "database": "memory"})
}
