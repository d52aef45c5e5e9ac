package httpapi

import (
	"net/http"

	"leadgen-engine/internal/orchestrator"
)

type StatusHandler struct {
	Orch *orchestrator.Orchestrator
}

// Get serves GET /scrape/status: a cheap engine-activity snapshot for
// the dashboard header.
func (h StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Orch.Status())
}
