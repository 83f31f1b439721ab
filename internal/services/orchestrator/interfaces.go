package orchestrator

import (
	"context"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/summarization"
	"github.com/killallgit/audio-recap/internal/services/transcription"
)

// Transcoder applies a compression plan (audio.Transcoder).
type Transcoder interface {
	Transcode(ctx context.Context, asset audio.Asset, plan audio.CompressionPlan) (audio.Asset, error)
}

// Transcriber turns audio segments into text (transcription.Client).
type Transcriber interface {
	Transcribe(ctx context.Context, segments []audio.Asset, onProgress transcription.ProgressFunc) (*transcription.Transcript, error)
}

// Summarizer runs one conversational turn (summarization.Client).
type Summarizer interface {
	Submit(ctx context.Context, conv summarization.Conversation, turn summarization.Turn, onFragment summarization.FragmentFunc) (summarization.Conversation, *summarization.Answer, error)
}

// JobRecorder persists upload job audit records (jobs.Service). Optional.
type JobRecorder interface {
	Begin(ctx context.Context, job *models.UploadJob) error
	Update(ctx context.Context, job *models.UploadJob) error
}
