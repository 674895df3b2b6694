package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a reconstruction job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ValidTransition reports whether the status edge is part of the job state
// machine. Staying on the same status is always allowed so field updates
// (heartbeat progress, stage messages) pass through the same guard.
func ValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Mode selects the capture mode hint forwarded to the reconstruction tool.
type Mode string

const (
	ModeObject Mode = "object"
	ModeArea   Mode = "area"
)

// ParseMode normalizes a capture mode value. Anything other than "area"
// resolves to object mode, matching the lenient submission contract.
func ParseMode(value string) Mode {
	if strings.EqualFold(strings.TrimSpace(value), string(ModeArea)) {
		return ModeArea
	}
	return ModeObject
}

// Job represents one submitted reconstruction request.
type Job struct {
	ID           string
	Mode         Mode
	Status       Status
	Progress     float64
	Stage        string
	InputDir     string
	ArtifactPath string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New builds a pending job for the given upload directory.
func New(id string, mode Mode, inputDir string) *Job {
	return &Job{
		ID:       id,
		Mode:     mode,
		Status:   StatusPending,
		Stage:    "Queued",
		InputDir: inputDir,
	}
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// SetProcessing moves the job into the processing state with a baseline
// progress value.
func (j *Job) SetProcessing(stage string, progress float64) {
	j.Status = StatusProcessing
	j.Stage = stage
	j.Progress = progress
	j.ErrorMessage = ""
}

// AdvanceHeartbeat bumps synthetic progress by increment, capped at ceiling.
// Progress never decreases and never reaches 1.0 through heartbeats.
func (j *Job) AdvanceHeartbeat(increment, ceiling float64) {
	next := j.Progress + increment
	if next > ceiling {
		next = ceiling
	}
	if next > j.Progress {
		j.Progress = next
	}
}

// SetCompleted records the verified artifact and full progress.
func (j *Job) SetCompleted(stage, artifactPath string) {
	j.Status = StatusCompleted
	j.Stage = stage
	j.Progress = 1.0
	j.ArtifactPath = artifactPath
	j.ErrorMessage = ""
}

// SetFailed marks the job failed with the given diagnostic stage message.
// Progress is reset so a stale heartbeat value cannot be mistaken for work
// still underway.
func (j *Job) SetFailed(stage string) {
	j.Status = StatusFailed
	j.Stage = stage
	j.Progress = 0
	j.ErrorMessage = stage
	j.ArtifactPath = ""
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
