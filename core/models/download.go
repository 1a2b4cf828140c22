package models

import "time"

// DownloadRequest is the body of an operator-triggered model download.
type DownloadRequest struct {
	URL       string `json:"url" binding:"required"`
	APIKey    string `json:"api_key,omitempty"`
	ModelType string `json:"model_type,omitempty"` // destination category, default "loras"
	Filename  string `json:"filename,omitempty"`   // explicit output name (googledrive only)
}

// JobState tracks a download job through its lifecycle.
// Terminal states (skipped, succeeded, failed) are final; the orchestrator
// never retries a job itself.
type JobState string

const (
	JobPending   JobState = "pending"
	JobSkipped   JobState = "skipped"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// DownloadJob is one (URL, category, filename) fetch unit expanded from the
// models configuration.
type DownloadJob struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	URL      string   `json:"url"`
	Filename string   `json:"filename"`
	State    JobState `json:"state"`
	Detail   string   `json:"detail,omitempty"` // diagnostic output on failure
	Ordinal  int      `json:"ordinal"`          // position within the category, 1-based
}

// SessionSummary aggregates the outcome of one orchestrator invocation.
type SessionSummary struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Total      int            `json:"total"`
	Skipped    int            `json:"skipped"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Jobs       []*DownloadJob `json:"jobs"`
}
