package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/store"
)

// Format selects the export serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// exportCap bounds a single export; no pagination beyond it.
const exportCap = 1000

var csvHeader = []string{
	"Name", "Title", "Company", "Industry", "Email", "Phone",
	"Location", "Confidence", "Source", "ScrapedAt",
}

// Leads serializes the user's newest leads (up to 1000) in the
// requested format and returns the bytes plus a content type.
func Leads(ctx context.Context, db *sql.DB, userID string, format Format) ([]byte, string, error) {
	leads, err := store.ListLeads(ctx, db, userID, exportCap)
	if err != nil {
		return nil, "", fmt.Errorf("load leads: %w", err)
	}

	switch format {
	case FormatCSV:
		b, err := toCSV(leads)
		return b, "text/csv", err
	case FormatJSON:
		b, err := json.MarshalIndent(leads, "", "  ")
		if err != nil {
			return nil, "", err
		}
		if len(leads) == 0 {
			b = []byte("[]")
		}
		return b, "application/json", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

// Filename builds the client-side download name,
// e.g. leads-all-2026-08-31.csv.
func Filename(jobName string, format Format) string {
	if jobName == "" {
		jobName = "all"
	}
	return fmt.Sprintf("leads-%s-%s.%s", jobName, time.Now().UTC().Format("2006-01-02"), format)
}

func toCSV(leads []domain.Lead) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, l := range leads {
		row := []string{
			l.Name, l.Title, l.Company, l.Industry, l.Email, l.Phone,
			l.Location, strconv.Itoa(l.Confidence), l.Source,
			l.ScrapedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
