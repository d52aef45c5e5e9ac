package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"leadgen-engine/internal/domain"
)

const leadColumns = `id, job_id, user_id, name, title, company, industry, employees,
revenue, location, email, phone, website, linkedin, confidence, source, scraped_at`

// InsertLeads writes one batch inside a single transaction; either the
// whole batch lands or none of it does.
func InsertLeads(ctx context.Context, db *sql.DB, leads []domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lead batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO leads(id, job_id, user_id, name, title, company, industry, employees,
  revenue, location, email, phone, website, linkedin, confidence, source, scraped_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare lead insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range leads {
		_, err := stmt.ExecContext(ctx,
			l.ID, l.JobID, l.UserID, l.Name, l.Title, l.Company, l.Industry, l.Employees,
			l.Revenue, l.Location, l.Email, l.Phone, l.Website, l.LinkedIn, l.Confidence,
			l.Source, l.ScrapedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert lead %s: %w", l.ID, err)
		}
	}

	return tx.Commit()
}

// ListLeads returns a user's newest leads, capped at limit.
func ListLeads(ctx context.Context, db *sql.DB, userID string, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := sq.Select(leadColumns).
		From("leads").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("scraped_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountLeadsForJob backs the leads_found accuracy check.
func CountLeadsForJob(ctx context.Context, db *sql.DB, jobID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE job_id = ?;`, jobID).Scan(&n)
	return n, err
}

func DeleteLead(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?;`, id)
	return err
}

func scanLead(r rowScanner) (domain.Lead, error) {
	var l domain.Lead
	var scrapedAt string
	err := r.Scan(
		&l.ID, &l.JobID, &l.UserID, &l.Name, &l.Title, &l.Company, &l.Industry, &l.Employees,
		&l.Revenue, &l.Location, &l.Email, &l.Phone, &l.Website, &l.LinkedIn, &l.Confidence,
		&l.Source, &scrapedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	l.ScrapedAt, _ = time.Parse(time.RFC3339, scrapedAt)
	return l, nil
}
