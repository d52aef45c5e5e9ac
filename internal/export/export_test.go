package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.Pool
}

func seedLeads(t *testing.T, db *sql.DB, userID string, n int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	job := domain.ScrapingJob{
		ID:        "job-1",
		UserID:    userID,
		Name:      "seed",
		Status:    domain.StatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateJob(ctx, db, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	var leads []domain.Lead
	for i := 0; i < n; i++ {
		leads = append(leads, domain.Lead{
			ID:         "lead-" + string(rune('a'+i)),
			JobID:      "job-1",
			UserID:     userID,
			Name:       "Biz " + string(rune('A'+i)),
			Company:    "Biz " + string(rune('A'+i)),
			Industry:   "plumbers",
			Location:   "Austin, usa",
			Phone:      "(512) 555-0100",
			Confidence: 92,
			Source:     domain.SourceGoogleMaps,
			ScrapedAt:  now.Add(time.Duration(i) * time.Second),
		})
	}
	if err := store.InsertLeads(ctx, db, leads); err != nil {
		t.Fatalf("insert leads: %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedLeads(t, db, "user-1", 3)

	body, contentType, err := Leads(context.Background(), db, "user-1", FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if contentType != "text/csv" {
		t.Fatalf("unexpected content type: %s", contentType)
	}

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 { // header + 3 rows
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if records[0][0] != "Name" || records[0][len(records[0])-1] != "ScrapedAt" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	// newest first
	if records[1][0] != "Biz C" {
		t.Fatalf("expected newest lead first, got %v", records[1])
	}
	if records[1][7] != "92" {
		t.Fatalf("unexpected confidence column: %v", records[1])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	body, _, err := Leads(context.Background(), db, "nobody", FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedLeads(t, db, "user-1", 2)

	body, contentType, err := Leads(context.Background(), db, "user-1", FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type: %s", contentType)
	}

	var leads []domain.Lead
	if err := json.Unmarshal(body, &leads); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if leads[0].Source != domain.SourceGoogleMaps {
		t.Fatalf("unexpected source: %q", leads[0].Source)
	}
}

func TestExportJSONEmptyIsArray(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	body, _, err := Leads(context.Background(), db, "nobody", FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(body) != "[]" {
		t.Fatalf("expected empty json array, got %q", body)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	if _, _, err := Leads(context.Background(), db, "u", Format("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	name := Filename("", FormatCSV)
	if !strings.HasPrefix(name, "leads-all-") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("unexpected filename: %s", name)
	}
	name = Filename("dentists", FormatJSON)
	if !strings.HasPrefix(name, "leads-dentists-") || !strings.HasSuffix(name, ".json") {
		t.Fatalf("unexpected filename: %s", name)
	}
}
