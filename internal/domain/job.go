package domain

import (
	"errors"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a scraping job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusActive    JobStatus = "active"
	StatusPaused    JobStatus = "paused"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether a job in this status can never change again
// (other than being deleted).
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ScrapingJob is one user-submitted lead search, executed in the
// background and observed by polling clients.
type ScrapingJob struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progress"` // 0..100
	LeadsFound    int       `json:"leads_found"`
	TotalExpected int       `json:"total_expected"`
	TimeRemaining string    `json:"time_remaining"`
	Industry      string    `json:"industry"`
	Location      string    `json:"location"`
	CompanySize   string    `json:"company_size"`
	RevenueRange  string    `json:"revenue_range"`
	SearchQuery   string    `json:"search_query"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SearchCriteria is the input a job is built from. It is not persisted
// as its own entity; the composed query string lands on the job row.
type SearchCriteria struct {
	Country  string `json:"country"`
	City     string `json:"city,omitempty"`
	Keywords string `json:"keywords"`
	Quantity int    `json:"quantity"`
}

// Location composes the human-readable location from country plus the
// optional city/province refinement.
func (c SearchCriteria) Location() string {
	city := strings.TrimSpace(c.City)
	country := strings.TrimSpace(c.Country)
	if city == "" {
		return country
	}
	return city + ", " + country
}

// Query is the free-text search phrase handed to the scrape target.
func (c SearchCriteria) Query() string {
	kw := strings.TrimSpace(c.Keywords)
	loc := c.Location()
	if loc == "" {
		return kw
	}
	return kw + " in " + loc
}

// Validate enforces required fields and quantity bounds before a job
// is admitted. maxQuantity <= 0 means no upper bound.
func (c SearchCriteria) Validate(maxQuantity int) error {
	if strings.TrimSpace(c.Country) == "" {
		return errors.New("country is required")
	}
	if strings.TrimSpace(c.Keywords) == "" {
		return errors.New("keywords are required")
	}
	if c.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if maxQuantity > 0 && c.Quantity > maxQuantity {
		return errors.New("quantity exceeds the per-job maximum")
	}
	return nil
}
