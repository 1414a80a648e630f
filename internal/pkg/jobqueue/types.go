package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeExport          JobType = "export"
	JobTypeArchiveDelivery JobType = "archive_delivery"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ExportJobPayload contains the payload for export jobs. The group manifest
// and the staged image files live under the job's working directory until
// the archive is finished.
type ExportJobPayload struct {
	JobUUID      string `json:"job_uuid"`
	ManifestPath string `json:"manifest_path"`
	WorkDir      string `json:"work_dir"`
}

// ToMap converts the payload to a map for storage
func (p ExportJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"job_uuid":      p.JobUUID,
		"manifest_path": p.ManifestPath,
		"work_dir":      p.WorkDir,
	}
}

// ExportJobPayloadFromMap creates a payload from a map
func ExportJobPayloadFromMap(data map[string]interface{}) (*ExportJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ExportJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ArchiveDeliveryJobPayload contains the payload for S3 archive delivery jobs
type ArchiveDeliveryJobPayload struct {
	JobUUID     string `json:"job_uuid"`
	ArchivePath string `json:"archive_path"`
	ArchiveName string `json:"archive_name"`
}

// ToMap converts the payload to a map for storage
func (p ArchiveDeliveryJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"job_uuid":     p.JobUUID,
		"archive_path": p.ArchivePath,
		"archive_name": p.ArchiveName,
	}
}

// ArchiveDeliveryJobPayloadFromMap creates a payload from a map
func ArchiveDeliveryJobPayloadFromMap(data map[string]interface{}) (*ArchiveDeliveryJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ArchiveDeliveryJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errorMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
