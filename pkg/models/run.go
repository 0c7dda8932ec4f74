package models

import "time"

// Adapter run statuses. An adapter moves pending -> running and settles
// at completed or failed; adapters skipped by cancellation settle at
// not_run.
const (
	AdapterStatusPending   = "pending"
	AdapterStatusRunning   = "running"
	AdapterStatusCompleted = "completed"
	AdapterStatusFailed    = "failed"
	AdapterStatusNotRun    = "not_run"
)

// Stats aggregates merge outcomes across a run.
type Stats struct {
	Processed  int `json:"processed"`
	Added      int `json:"added"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// Add folds other into s.
func (s *Stats) Add(other Stats) {
	s.Processed += other.Processed
	s.Added += other.Added
	s.Updated += other.Updated
	s.Duplicates += other.Duplicates
	s.Skipped += other.Skipped
	s.Errors += other.Errors
}

// AdapterResult is the per-adapter outcome within a run.
type AdapterResult struct {
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	RecordCount int           `json:"record_count"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	Stats       Stats         `json:"stats"`
}

// RunReport is the immutable result of one orchestrator invocation. It
// reflects every adapter attempted, including failed and skipped ones.
type RunReport struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Adapters    []AdapterResult `json:"adapters"`
	Stats       Stats           `json:"stats"`
	Errors      []string        `json:"errors,omitempty"`
}

// TestReport is the result of a dry run against a single adapter. No
// store writes happen during a test.
type TestReport struct {
	AdapterName   string        `json:"adapter_name"`
	Status        string        `json:"status"`
	RecordsTested int           `json:"records_tested"`
	SampleData    []RawRecord   `json:"sample_data,omitempty"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// AdapterIdentity describes a registered source adapter.
type AdapterIdentity struct {
	Name       string `json:"name"`
	SourceURL  string `json:"source_url"`
	SourceType string `json:"source_type"`
}

// ScrapeJob is the persisted record of one adapter invocation within a
// run.
type ScrapeJob struct {
	ID          string     `json:"id" db:"id"`
	RunID       string     `json:"run_id" db:"run_id"`
	AdapterName string     `json:"adapter_name" db:"adapter_name"`
	Status      string     `json:"status" db:"status"`
	RecordCount int        `json:"record_count" db:"record_count"`
	Error       *string    `json:"error,omitempty" db:"error"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
