package orchestrator

import (
	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/models"
)

// Stage names a step of an action, for progress and failure reporting.
type Stage string

const (
	StageValidate   Stage = "validate"
	StagePlan       Stage = "plan"
	StageTranscode  Stage = "transcode"
	StageTranscribe Stage = "transcribe"
	StageSummarize  Stage = "summarize"
)

// UploadMessageFormat is the history entry recorded for an upload.
const UploadMessageFormat = "Uploaded audio file '%s'"

// Progress is one update sent to the presentation layer.
type Progress struct {
	Stage        Stage  `json:"stage"`
	Tier         string `json:"tier,omitempty"`
	SegmentIndex int    `json:"segment_index,omitempty"`
	SegmentTotal int    `json:"segment_total,omitempty"`
	Fragment     string `json:"fragment,omitempty"`
}

// ProgressFunc receives progress updates. It is called synchronously and
// must not block.
type ProgressFunc func(Progress)

// Upload is the input of NewUpload.
type Upload struct {
	Asset       audio.Asset
	Instruction string
	Source      models.JobSource
}

// Result is the outcome of a successful NewUpload.
type Result struct {
	Answer         string                `json:"answer"`
	ConversationID string                `json:"conversation_id"`
	Transcript     string                `json:"transcript"`
	Plan           audio.CompressionPlan `json:"-"`
	Tier           string                `json:"tier"`
	RawSize        int64                 `json:"raw_size"`
	EncodedSize    int64                 `json:"encoded_size"`
	JobID          uint                  `json:"job_id,omitempty"`
}

// Reply is the outcome of a successful FollowUp.
type Reply struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// Config holds the limits applied to every upload.
type Config struct {
	// Ceiling is the per-call payload limit of the speech service. Values
	// above DefaultCeiling are clamped to it.
	Ceiling int64
	// MaxUploadSize rejects uploads before planning.
	MaxUploadSize int64
	// DefaultInstruction is used when an upload carries none.
	DefaultInstruction string
}

const (
	DefaultCeiling       int64 = 25 << 20
	DefaultMaxUploadSize int64 = 200 << 20
)
