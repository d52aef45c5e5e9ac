package domain

import "time"

// SourceGoogleMaps labels leads extracted from rendered Google Maps
// search results, the primary scrape target.
const SourceGoogleMaps = "Google Maps"

// Lead is one extracted business/person record. Leads are created in
// batches during job execution and never mutated afterwards. Contact
// fields that could not be located in the source document are left
// empty rather than synthesized.
type Lead struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	Industry   string    `json:"industry"`
	Employees  string    `json:"employees"`
	Revenue    string    `json:"revenue"`
	Location   string    `json:"location"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Website    string    `json:"website"`
	LinkedIn   string    `json:"linkedin"`
	Confidence int       `json:"confidence"` // 0..100, heuristic
	Source     string    `json:"source"`
	ScrapedAt  time.Time `json:"scraped_at"`
}
