package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"leadgen-engine/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.Pool
}

func testJob(id, userID string, status domain.JobStatus, createdAt time.Time) domain.ScrapingJob {
	return domain.ScrapingJob{
		ID:            id,
		UserID:        userID,
		Name:          "dentists in Austin, usa",
		Status:        status,
		TotalExpected: 10,
		TimeRemaining: "Queued",
		Industry:      "dentists",
		Location:      "Austin, usa",
		SearchQuery:   "dentists in Austin, usa",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func testLead(id, jobID, userID string, scrapedAt time.Time) domain.Lead {
	return domain.Lead{
		ID:         id,
		JobID:      jobID,
		UserID:     userID,
		Name:       "Acme Dental",
		Company:    "Acme Dental",
		Industry:   "dentists",
		Location:   "Austin, usa",
		Phone:      "(512) 555-0000",
		Confidence: 90,
		Source:     domain.SourceGoogleMaps,
		ScrapedAt:  scrapedAt,
	}
}

func mustCreateJob(t *testing.T, db *sql.DB, j domain.ScrapingJob) {
	t.Helper()
	if err := CreateJob(context.Background(), db, j); err != nil {
		t.Fatalf("create job %s: %v", j.ID, err)
	}
}
