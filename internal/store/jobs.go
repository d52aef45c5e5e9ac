package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"leadgen-engine/internal/domain"
)

// ErrJobNotFound is returned when a job id matches no row.
var ErrJobNotFound = errors.New("job not found")

const jobColumns = `id, user_id, name, status, progress, leads_found, total_expected,
time_remaining, industry, location, company_size, revenue_range, search_query,
error_message, created_at, updated_at`

func CreateJob(ctx context.Context, db *sql.DB, j domain.ScrapingJob) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO scraping_jobs(id, user_id, name, status, progress, leads_found, total_expected,
  time_remaining, industry, location, company_size, revenue_range, search_query,
  error_message, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		j.ID, j.UserID, j.Name, string(j.Status), j.Progress, j.LeadsFound, j.TotalExpected,
		j.TimeRemaining, j.Industry, j.Location, j.CompanySize, j.RevenueRange, j.SearchQuery,
		j.ErrorMessage, j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func GetJob(ctx context.Context, db *sql.DB, id string) (domain.ScrapingJob, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scraping_jobs WHERE id = ?;`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScrapingJob{}, ErrJobNotFound
	}
	return j, err
}

// ListJobs returns a user's jobs, newest first.
func ListJobs(ctx context.Context, db *sql.DB, userID string) ([]domain.ScrapingJob, error) {
	query, args, err := sq.Select(jobColumns).
		From("scraping_jobs").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScrapingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListJobsByStatus is used by the orchestrator on startup (requeue) and
// by the janitor (stale active jobs).
func ListJobsByStatus(ctx context.Context, db *sql.DB, status domain.JobStatus) ([]domain.ScrapingJob, error) {
	query, args, err := sq.Select(jobColumns).
		From("scraping_jobs").
		Where(sq.Eq{"status": string(status)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScrapingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpdateJobProgress is a partial update of the live progress fields.
// Terminal jobs are left untouched; the call is a silent no-op then.
// leadsFound < 0 means "leave the counter alone".
func UpdateJobProgress(ctx context.Context, db *sql.DB, id string, progress int, timeRemaining string, leadsFound int) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var err error
	if leadsFound >= 0 {
		_, err = db.ExecContext(ctx, `
UPDATE scraping_jobs
SET progress = ?, time_remaining = ?, leads_found = ?, updated_at = ?
WHERE id = ? AND status NOT IN ('completed','failed');`,
			progress, timeRemaining, leadsFound, now, id)
	} else {
		_, err = db.ExecContext(ctx, `
UPDATE scraping_jobs
SET progress = ?, time_remaining = ?, updated_at = ?
WHERE id = ? AND status NOT IN ('completed','failed');`,
			progress, timeRemaining, now, id)
	}
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// SetJobStatus transitions a job, enforcing the one-directional state
// machine: the update only applies when the current status is one of
// the allowed predecessors. Returns whether a row actually changed.
func SetJobStatus(ctx context.Context, db *sql.DB, id string, to domain.JobStatus, errMsg string, from ...domain.JobStatus) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	q := sq.Update("scraping_jobs").
		Set("status", string(to)).
		Set("error_message", errMsg).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})
	if len(from) > 0 {
		froms := make([]string, 0, len(from))
		for _, f := range from {
			froms = append(froms, string(f))
		}
		q = q.Where(sq.Eq{"status": froms})
	} else {
		q = q.Where(sq.NotEq{"status": []string{string(domain.StatusCompleted), string(domain.StatusFailed)}})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set job status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CompleteJob marks the terminal success state in one write.
func CompleteJob(ctx context.Context, db *sql.DB, id string, leadsFound int) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `
UPDATE scraping_jobs
SET status = 'completed', progress = 100, time_remaining = 'Completed',
    leads_found = ?, error_message = '', updated_at = ?
WHERE id = ? AND status NOT IN ('completed','failed');`,
		leadsFound, now, id)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteJob removes the job row; its leads go with it via the FK
// cascade.
func DeleteJob(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM scraping_jobs WHERE id = ?;`, id)
	return err
}

// FailStaleActiveJobs fails active jobs whose last update is older than
// cutoff. Covers jobs orphaned by a crash mid-run.
func FailStaleActiveJobs(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `
UPDATE scraping_jobs
SET status = 'failed', error_message = 'job abandoned: engine restarted mid-run', updated_at = ?
WHERE status = 'active' AND updated_at < ?;`,
		now, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (domain.ScrapingJob, error) {
	var j domain.ScrapingJob
	var status, createdAt, updatedAt string
	err := r.Scan(
		&j.ID, &j.UserID, &j.Name, &status, &j.Progress, &j.LeadsFound, &j.TotalExpected,
		&j.TimeRemaining, &j.Industry, &j.Location, &j.CompanySize, &j.RevenueRange, &j.SearchQuery,
		&j.ErrorMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.ScrapingJob{}, err
	}
	j.Status = domain.JobStatus(status)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return j, nil
}
