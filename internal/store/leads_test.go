package store

import (
	"context"
	"testing"
	"time"

	"leadgen-engine/internal/domain"
)

func TestInsertAndListLeads(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	mustCreateJob(t, db, testJob("job-1", "user-1", domain.StatusActive, base))

	leads := []domain.Lead{
		testLead("lead-old", "job-1", "user-1", base),
		testLead("lead-new", "job-1", "user-1", base.Add(time.Minute)),
		testLead("lead-other", "job-1", "user-2", base),
	}
	if err := InsertLeads(ctx, db, leads); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := ListLeads(ctx, db, "user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 leads for user-1, got %d", len(got))
	}
	if got[0].ID != "lead-new" || got[1].ID != "lead-old" {
		t.Fatalf("expected newest first, got [%s %s]", got[0].ID, got[1].ID)
	}
	if got[0].Phone != "(512) 555-0000" || got[0].Source != domain.SourceGoogleMaps {
		t.Fatalf("field round trip failed: %+v", got[0])
	}

	// limit applies
	got, err = ListLeads(ctx, db, "user-1", 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(got) != 1 || got[0].ID != "lead-new" {
		t.Fatalf("limit broke ordering: %+v", got)
	}
}

func TestInsertLeadsEmptyBatch(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	if err := InsertLeads(context.Background(), db, nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}

func TestInsertLeadsBatchIsAtomic(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustCreateJob(t, db, testJob("job-1", "u", domain.StatusActive, now))

	if err := InsertLeads(ctx, db, []domain.Lead{testLead("dup", "job-1", "u", now)}); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	// second batch collides on the primary key mid-way; nothing from it
	// may land
	batch := []domain.Lead{
		testLead("fresh", "job-1", "u", now),
		testLead("dup", "job-1", "u", now),
	}
	if err := InsertLeads(ctx, db, batch); err == nil {
		t.Fatal("expected primary key violation")
	}

	n, err := CountLeadsForJob(ctx, db, "job-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("partial batch leaked: %d leads", n)
	}
}

func TestInsertLeadsRequiresExistingJob(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	err := InsertLeads(context.Background(), db,
		[]domain.Lead{testLead("lead-1", "no-such-job", "u", time.Now().UTC())})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestDeleteLead(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustCreateJob(t, db, testJob("job-1", "u", domain.StatusActive, now))

	if err := InsertLeads(ctx, db, []domain.Lead{testLead("lead-1", "job-1", "u", now)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := DeleteLead(ctx, db, "lead-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	n, _ := CountLeadsForJob(ctx, db, "job-1")
	if n != 0 {
		t.Fatalf("lead still present: %d", n)
	}
}
