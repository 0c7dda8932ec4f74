package models

import "time"

// Source types recognized for provenance tracking.
const (
	SourceTypeGovernment = "government"
	SourceTypeDirectory  = "directory"
	SourceTypeSocial     = "social"
	SourceTypeScraped    = "scraped"
)

// DataSource identifies a named provenance with a reliability score.
// Reliability is compared, never averaged, when reassigning provenance
// during merge.
type DataSource struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	SourceType       string     `json:"source_type" db:"source_type"`
	URL              *string    `json:"url,omitempty" db:"url"`
	ReliabilityScore float64    `json:"reliability_score" db:"reliability_score"`
	LastScraped      *time.Time `json:"last_scraped,omitempty" db:"last_scraped"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
