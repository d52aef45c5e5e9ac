package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadgen-engine/internal/domain"
)

func TestJobRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	in := testJob("job-1", "user-1", domain.StatusQueued, now)
	mustCreateJob(t, db, in)

	out, err := GetJob(ctx, db, "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if out.ID != in.ID || out.UserID != in.UserID || out.Name != in.Name {
		t.Fatalf("identity mismatch: %+v", out)
	}
	if out.Status != domain.StatusQueued {
		t.Fatalf("unexpected status: %s", out.Status)
	}
	if out.TotalExpected != 10 || out.Industry != "dentists" || out.SearchQuery != "dentists in Austin, usa" {
		t.Fatalf("criteria fields mismatch: %+v", out)
	}
	if !out.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: got %v want %v", out.CreatedAt, now)
	}
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, err := GetJob(context.Background(), db, "nope")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListJobsNewestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	mustCreateJob(t, db, testJob("old", "user-1", domain.StatusCompleted, base))
	mustCreateJob(t, db, testJob("mid", "user-1", domain.StatusActive, base.Add(time.Minute)))
	mustCreateJob(t, db, testJob("new", "user-1", domain.StatusQueued, base.Add(2*time.Minute)))
	mustCreateJob(t, db, testJob("other", "user-2", domain.StatusQueued, base.Add(3*time.Minute)))

	jobs, err := ListJobs(ctx, db, "user-1")
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs for user-1, got %d", len(jobs))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if jobs[i].ID != want {
			t.Fatalf("position %d: got %s want %s", i, jobs[i].ID, want)
		}
	}
}

func TestListJobsByStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	mustCreateJob(t, db, testJob("q2", "u", domain.StatusQueued, base.Add(time.Minute)))
	mustCreateJob(t, db, testJob("q1", "u", domain.StatusQueued, base))
	mustCreateJob(t, db, testJob("done", "u", domain.StatusCompleted, base))

	jobs, err := ListJobsByStatus(ctx, db, domain.StatusQueued)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "q1" || jobs[1].ID != "q2" {
		t.Fatalf("expected [q1 q2], got %+v", jobs)
	}
}

func TestSetJobStatusTransitions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustCreateJob(t, db, testJob("job-1", "u", domain.StatusQueued, now))

	// queued -> active
	changed, err := SetJobStatus(ctx, db, "job-1", domain.StatusActive, "", domain.StatusQueued, domain.StatusActive)
	if err != nil || !changed {
		t.Fatalf("queued->active: changed=%v err=%v", changed, err)
	}

	// pausing a queued job is rejected: predecessor must be active
	changed, err = SetJobStatus(ctx, db, "job-1", domain.StatusPaused, "", domain.StatusQueued)
	if err != nil {
		t.Fatalf("pause attempt: %v", err)
	}
	if changed {
		t.Fatal("pause should not apply when predecessor does not match")
	}

	// active -> paused -> active
	if changed, _ := SetJobStatus(ctx, db, "job-1", domain.StatusPaused, "", domain.StatusActive); !changed {
		t.Fatal("active->paused should apply")
	}
	if changed, _ := SetJobStatus(ctx, db, "job-1", domain.StatusActive, "", domain.StatusPaused); !changed {
		t.Fatal("paused->active should apply")
	}
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustCreateJob(t, db, testJob("job-1", "u", domain.StatusActive, now))

	if changed, err := CompleteJob(ctx, db, "job-1", 7); err != nil || !changed {
		t.Fatalf("complete: changed=%v err=%v", changed, err)
	}

	// a second terminal write is a no-op
	if changed, _ := CompleteJob(ctx, db, "job-1", 99); changed {
		t.Fatal("completing twice should not apply")
	}
	if changed, _ := SetJobStatus(ctx, db, "job-1", domain.StatusFailed, "boom"); changed {
		t.Fatal("failing a completed job should not apply")
	}

	// progress writes are silently dropped
	if err := UpdateJobProgress(ctx, db, "job-1", 10, "~5s", 1); err != nil {
		t.Fatalf("progress on terminal job: %v", err)
	}

	job, err := GetJob(ctx, db, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != domain.StatusCompleted || job.Progress != 100 || job.LeadsFound != 7 {
		t.Fatalf("terminal state drifted: %+v", job)
	}
	if job.TimeRemaining != "Completed" {
		t.Fatalf("unexpected time_remaining: %q", job.TimeRemaining)
	}
}

func TestUpdateJobProgress(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	mustCreateJob(t, db, testJob("job-1", "u", domain.StatusActive, time.Now().UTC()))

	if err := UpdateJobProgress(ctx, db, "job-1", 40, "~12s", 4); err != nil {
		t.Fatalf("update: %v", err)
	}
	job, _ := GetJob(ctx, db, "job-1")
	if job.Progress != 40 || job.TimeRemaining != "~12s" || job.LeadsFound != 4 {
		t.Fatalf("unexpected progress state: %+v", job)
	}

	// leadsFound < 0 leaves the counter alone
	if err := UpdateJobProgress(ctx, db, "job-1", 60, "~8s", -1); err != nil {
		t.Fatalf("update: %v", err)
	}
	job, _ = GetJob(ctx, db, "job-1")
	if job.Progress != 60 || job.LeadsFound != 4 {
		t.Fatalf("leads counter should be untouched: %+v", job)
	}
}

func TestDeleteJobCascadesToLeads(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustCreateJob(t, db, testJob("job-1", "u", domain.StatusCompleted, now))

	leads := []domain.Lead{
		testLead("lead-1", "job-1", "u", now),
		testLead("lead-2", "job-1", "u", now),
	}
	if err := InsertLeads(ctx, db, leads); err != nil {
		t.Fatalf("insert leads: %v", err)
	}

	if err := DeleteJob(ctx, db, "job-1"); err != nil {
		t.Fatalf("delete job: %v", err)
	}

	n, err := CountLeadsForJob(ctx, db, "job-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected cascade to remove leads, %d remain", n)
	}
}

func TestFailStaleActiveJobs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := testJob("stale", "u", domain.StatusActive, now.Add(-2*time.Hour))
	fresh := testJob("fresh", "u", domain.StatusActive, now)
	mustCreateJob(t, db, stale)
	mustCreateJob(t, db, fresh)

	n, err := FailStaleActiveJobs(ctx, db, now.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("fail stale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale job failed, got %d", n)
	}

	job, _ := GetJob(ctx, db, "stale")
	if job.Status != domain.StatusFailed || job.ErrorMessage == "" {
		t.Fatalf("stale job not failed: %+v", job)
	}
	job, _ = GetJob(ctx, db, "fresh")
	if job.Status != domain.StatusActive {
		t.Fatalf("fresh job should survive: %+v", job)
	}
}
