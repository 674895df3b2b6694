package api

import (
	"time"

	"lathe/internal/deps"
	"lathe/internal/jobs"
)

// SubmitResponse acknowledges a registered job.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// StatusResponse is the polling payload for a single job.
type StatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Stage    string  `json:"stage"`
}

// JobView is the list representation of a job.
type JobView struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListResponse wraps the job listing.
type ListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// HealthResponse reports daemon liveness, queue counts, and external tool
// availability.
type HealthResponse struct {
	Status       string             `json:"status"`
	Queue        jobs.HealthSummary `json:"queue"`
	Dependencies []deps.Status      `json:"dependencies"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewStatusResponse projects a job onto the polling payload.
func NewStatusResponse(job *jobs.Job) StatusResponse {
	return StatusResponse{
		Status:   string(job.Status),
		Progress: job.Progress,
		Stage:    job.Stage,
	}
}

// NewJobView projects a job onto its list representation.
func NewJobView(job *jobs.Job) JobView {
	return JobView{
		ID:        job.ID,
		Mode:      string(job.Mode),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Stage:     job.Stage,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
