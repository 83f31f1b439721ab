package models

import (
	"time"

	"gorm.io/gorm"
)

// JobStatus represents the lifecycle state of an upload job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobSource records how the audio reached the service
type JobSource string

const (
	JobSourceUpload JobSource = "upload"
	JobSourceURL    JobSource = "url"
	JobSourceFile   JobSource = "file"
)

// UploadJob is the audit record of one NewUpload action. It holds sizes,
// the chosen tier and the stage reached; transcript and answer text are
// never stored.
type UploadJob struct {
	gorm.Model
	SessionID string    `json:"session_id" gorm:"not null;index:idx_upload_jobs_session"`
	FileName  string    `json:"file_name"`
	Source    JobSource `json:"source" gorm:"default:'upload'"`
	Status    JobStatus `json:"status" gorm:"default:'pending';index"`
	Stage     string    `json:"stage"`

	RawSize     int64  `json:"raw_size"`
	EncodedSize int64  `json:"encoded_size"`
	Tier        string `json:"tier"`

	SegmentsDone  int `json:"segments_done"`
	SegmentsTotal int `json:"segments_total"`

	ConversationID string `json:"conversation_id,omitempty"`

	ErrorStage string `json:"error_stage,omitempty"`
	Error      string `json:"error,omitempty"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Start marks the job as processing
func (j *UploadJob) Start() {
	now := time.Now().UTC()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
}

// Complete marks the job as finished successfully
func (j *UploadJob) Complete(conversationID string) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ConversationID = conversationID
	j.CompletedAt = &now
	j.ErrorStage = ""
	j.Error = ""
}

// Fail records the stage that failed and the error message
func (j *UploadJob) Fail(stage string, err error) {
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.ErrorStage = stage
	if err != nil {
		j.Error = err.Error()
	}
	j.CompletedAt = &now
}

// IsTerminal returns true if the job will not change any more
func (j *UploadJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Duration is the processing time of a terminal job
func (j *UploadJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// TableName specifies the table name for GORM
func (UploadJob) TableName() string {
	return "upload_jobs"
}

// All returns every model that AutoMigrate must create
func All() []any {
	return []any{&UploadJob{}}
}
