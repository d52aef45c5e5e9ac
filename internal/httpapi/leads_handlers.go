package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/store"
)

type LeadsHandler struct {
	DB     *sql.DB
	CfgVal *atomic.Value
}

func (h LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	leads, err := store.ListLeads(r.Context(), h.DB, userID(r, h.CfgVal), limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	writeJSON(w, leads)
}

func (h LeadsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/leads/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid lead id")
		return
	}

	if err := store.DeleteLead(r.Context(), h.DB, id); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
