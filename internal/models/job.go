package models

import (
	"fmt"
	"time"
)

// JobStatus represents the state of a report job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusExtracting JobStatus = "extracting"
	JobStatusAnalyzing  JobStatus = "analyzing"
	JobStatusRendering  JobStatus = "rendering"
	JobStatusDeploying  JobStatus = "deploying"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// Stage names recorded on failure and in transition timestamps.
const (
	StageExtract = "extract"
	StageAnalyze = "analyze"
	StageRender  = "render"
	StageDeploy  = "deploy"
)

// ReportJob represents one (client, month) unit of report work.
//
// Lifecycle: created on submit, driven through the state machine by the
// orchestrator only. Terminal states (complete, failed) are immutable.
//
// State machine:
//
//	pending -> extracting -> analyzing -> rendering -> deploying -> complete
//
// Any stage may transition to failed, carrying the failing stage name and
// cause. Degraded is set when the job completed with partial extracted data
// (per-screenshot or document failures that did not abort the job).
type ReportJob struct {
	ID        string    `json:"id"`
	Client    string    `json:"client"`
	Month     string    `json:"month"` // month token, e.g. "2025_05_May"
	SourceDir string    `json:"source_dir"`
	Status    JobStatus `json:"status"`

	// Degraded marks a completed job that produced a report from
	// incomplete extracted data.
	Degraded bool `json:"degraded"`

	// FailedStage and Error are set only when Status is failed.
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`

	// Warnings collects isolated per-item failures (bad screenshot,
	// unreadable PDF page) that degraded but did not fail the job.
	Warnings []string `json:"warnings,omitempty"`

	// URL of the deployed report, set on successful deployment.
	URL string `json:"url,omitempty"`

	// ContentHash of the rendered artifact, set after rendering.
	ContentHash string `json:"content_hash,omitempty"`

	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Transitions map[string]time.Time `json:"transitions,omitempty"` // status -> entered-at
}

// JobKey returns the storage key for a (client, month) pair.
func JobKey(client, month string) string {
	return client + "|" + month
}

// Key returns the job's storage key.
func (j *ReportJob) Key() string {
	return JobKey(j.Client, j.Month)
}

// IsTerminal reports whether the job has reached a terminal state.
func (j *ReportJob) IsTerminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusFailed
}

// Transition moves the job to the given status and records the timestamp.
// Returns an error if the job is already terminal.
func (j *ReportJob) Transition(status JobStatus) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s is terminal (%s), cannot transition to %s", j.Key(), j.Status, status)
	}
	j.Status = status
	now := time.Now()
	j.UpdatedAt = now
	if j.Transitions == nil {
		j.Transitions = make(map[string]time.Time)
	}
	j.Transitions[string(status)] = now
	return nil
}

// Fail marks the job failed at the given stage with the cause.
func (j *ReportJob) Fail(stage string, cause error) {
	j.FailedStage = stage
	if cause != nil {
		j.Error = cause.Error()
	}
	_ = j.Transition(JobStatusFailed)
}

// AddWarning appends an isolated-failure warning to the job.
func (j *ReportJob) AddWarning(format string, args ...interface{}) {
	j.Warnings = append(j.Warnings, fmt.Sprintf(format, args...))
}
