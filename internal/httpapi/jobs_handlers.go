package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/events"
	"leadgen-engine/internal/orchestrator"
	"leadgen-engine/internal/store"
)

type JobsHandler struct {
	DB     *sql.DB
	Hub    *events.Hub
	Orch   *orchestrator.Orchestrator
	CfgVal *atomic.Value
}

type createJobReq struct {
	Name     string                `json:"name"`
	Criteria domain.SearchCriteria `json:"criteria"`
}

// Create admits a new scraping job. The response carries the job
// record immediately; execution continues in the background and is
// observed by polling GET /jobs/{id}.
func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	job, err := h.Orch.Submit(r.Context(), userID(r, h.CfgVal), strings.TrimSpace(req.Name), req.Criteria)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_criteria", err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobCreated, 1, events.JobEvent{
		JobID:  job.ID,
		Status: string(job.Status),
	}))
	WriteJSON(w, http.StatusCreated, job)
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs(r.Context(), h.DB, userID(r, h.CfgVal))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if jobs == nil {
		jobs = []domain.ScrapingJob{}
	}
	writeJSON(w, jobs)
}

// ByPath routes /jobs/{id}[/pause|/resume] by method and suffix.
func (h JobsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "missing job id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case action == "pause" && r.Method == http.MethodPost:
		h.pause(w, r, id)
	case action == "resume" && r.Method == http.MethodPost:
		h.resume(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h JobsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := store.GetJob(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrJobNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "job not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, job)
}

func (h JobsHandler) pause(w http.ResponseWriter, r *http.Request, id string) {
	changed, err := h.Orch.Pause(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if !changed {
		WriteError(w, r, http.StatusConflict, "invalid_transition", "job is not active")
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobPaused, 1, events.JobEvent{JobID: id, Status: "paused"}))
	writeJSON(w, map[string]any{"ok": true, "id": id, "status": "paused"})
}

func (h JobsHandler) resume(w http.ResponseWriter, r *http.Request, id string) {
	changed, err := h.Orch.Resume(r.Context(), id)
	if errors.Is(err, orchestrator.ErrQueueFull) {
		WriteError(w, r, http.StatusServiceUnavailable, "queue_full", "job queue is full, try again shortly")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if !changed {
		WriteError(w, r, http.StatusConflict, "invalid_transition", "job is not paused")
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobResumed, 1, events.JobEvent{JobID: id, Status: "active"}))
	writeJSON(w, map[string]any{"ok": true, "id": id, "status": "active"})
}

func (h JobsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.Orch.Delete(r.Context(), id); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypeJobDeleted, 1, events.JobEvent{JobID: id}))
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
