package models

import "time"

// AnalysisTask represents a batch LISA run over every configured period
type AnalysisTask struct {
	ID int64 `json:"id" db:"id"`

	// Task scope
	Level     GeoLevel `json:"level" db:"level"`
	Measure   Measure  `json:"measure" db:"measure"`
	CrimeType string   `json:"crime_type" db:"crime_type"`

	// Status
	Status          string `json:"status" db:"status"` // pending, running, completed, failed
	ProgressPercent int    `json:"progress_percent" db:"progress_percent"`

	// Execution info
	TotalPeriods     int   `json:"total_periods" db:"total_periods"`
	ProcessedPeriods int   `json:"processed_periods" db:"processed_periods"`
	SkippedPeriods   int   `json:"skipped_periods" db:"skipped_periods"`
	StartTime        int64 `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime          int64 `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp

	// Results
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object with per-period global statistics
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	// Metadata
	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)
