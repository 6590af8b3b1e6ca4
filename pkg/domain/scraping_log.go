package domain

import (
	"time"
)

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// ScrapingLog audits one ingestion run against one platform.
type ScrapingLog struct {
	ID              string     `json:"id"`
	Platform        string     `json:"platform"`
	Status          RunStatus  `json:"status"`
	ItemsFound      int        `json:"items_found"`
	ItemsNew        int        `json:"items_new"`
	ItemsUpdated    int        `json:"items_updated"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// RunResult is what a trigger call reports back per platform.
type RunResult struct {
	Platform string    `json:"platform"`
	Kind     string    `json:"type"`
	Status   RunStatus `json:"status"`
	Found    int       `json:"found"`
	New      int       `json:"new"`
	Updated  int       `json:"updated"`
	Dropped  int       `json:"dropped"`
	Error    string    `json:"error,omitempty"`
}

type IngestionResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Details []RunResult `json:"details"`
}
