package types

import (
	"time"

	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/killallgit/audio-recap/internal/services/summarization"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`  // One of the Status constants above
	Message string `json:"message"` // Human-readable message
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"` // Error code
	Stage   string         `json:"stage,omitempty"` // Pipeline stage that failed
	Details map[string]any `json:"details,omitempty"`
}

// Session describes one conversation session
type Session struct {
	ID             string    `json:"session_id"`
	State          string    `json:"state"`
	ConversationID string    `json:"conversation_id,omitempty"`
	LastUsed       time.Time `json:"last_used"`
	Busy           bool      `json:"busy"`
}

// SessionResponse wraps a single session
type SessionResponse struct {
	BaseResponse
	Session Session `json:"session"`
}

// UploadResponse is the blocking response of an upload
type UploadResponse struct {
	BaseResponse
	Result *orchestrator.Result `json:"result"`
}

// MessageRequest carries a follow-up question
type MessageRequest struct {
	Question string `json:"question"`
}

// ReplyResponse is the blocking response of a follow-up
type ReplyResponse struct {
	BaseResponse
	Reply *orchestrator.Reply `json:"reply"`
}

// Message is one history entry
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse lists a session's history
type MessagesResponse struct {
	BaseResponse
	ConversationID string    `json:"conversation_id,omitempty"`
	Messages       []Message `json:"messages"`
}

// Job is the public view of an upload job record
type Job struct {
	ID             uint       `json:"id"`
	FileName       string     `json:"file_name"`
	Source         string     `json:"source"`
	Status         string     `json:"status"`
	Stage          string     `json:"stage,omitempty"`
	Tier           string     `json:"tier,omitempty"`
	RawSize        int64      `json:"raw_size"`
	EncodedSize    int64      `json:"encoded_size,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	ErrorStage     string     `json:"error_stage,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// JobsResponse lists upload jobs for a session
type JobsResponse struct {
	BaseResponse
	Jobs  []Job `json:"jobs"`
	Count int   `json:"count"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Sessions  int            `json:"sessions"`
	Database  map[string]any `json:"database"`
}

// NewSession builds the public view of s.
func NewSession(s *orchestrator.Session) Session {
	return Session{
		ID:             s.ID(),
		State:          string(s.State()),
		ConversationID: s.ConversationID(),
		LastUsed:       s.LastUsed(),
		Busy:           s.Busy(),
	}
}

// NewMessages converts conversation history.
func NewMessages(msgs []summarization.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// NewJobs converts job records.
func NewJobs(records []*models.UploadJob) []Job {
	out := make([]Job, 0, len(records))
	for _, r := range records {
		out = append(out, Job{
			ID:             r.ID,
			FileName:       r.FileName,
			Source:         string(r.Source),
			Status:         string(r.Status),
			Stage:          r.Stage,
			Tier:           r.Tier,
			RawSize:        r.RawSize,
			EncodedSize:    r.EncodedSize,
			ConversationID: r.ConversationID,
			ErrorStage:     r.ErrorStage,
			Error:          r.Error,
			CreatedAt:      r.CreatedAt,
			CompletedAt:    r.CompletedAt,
		})
	}
	return out
}
