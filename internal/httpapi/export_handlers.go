package httpapi

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync/atomic"

	"leadgen-engine/internal/export"
)

type ExportHandler struct {
	DB     *sql.DB
	CfgVal *atomic.Value
}

// Get serves GET /export?format=csv|json as a file download.
func (h ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatCSV
	}

	body, contentType, err := export.Leads(r.Context(), h.DB, userID(r, h.CfgVal), format)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "export_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename("", format)))
	_, _ = w.Write(body)
}
