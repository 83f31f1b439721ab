package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultWhisperModel is the hosted speech model used when none is configured
const DefaultWhisperModel = "whisper-1"

// WhisperConfig holds configuration for the hosted Whisper recognizer
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// WhisperRecognizer implements Recognizer with the OpenAI audio transcription API
type WhisperRecognizer struct {
	client oai.Client
	model  string
}

// Compile-time assertion that WhisperRecognizer implements Recognizer.
var _ Recognizer = (*WhisperRecognizer)(nil)

// NewWhisperRecognizer creates a recognizer. Retries are disabled: a failed
// segment fails the whole transcription.
func NewWhisperRecognizer(cfg WhisperConfig) (*WhisperRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("whisper: api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWhisperModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return &WhisperRecognizer{
		client: oai.NewClient(reqOpts...),
		model:  cfg.Model,
	}, nil
}

// Recognize implements Recognizer.
func (w *WhisperRecognizer) Recognize(ctx context.Context, audio io.Reader, label, language string) (string, error) {
	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(audio, label, contentTypeFor(label)),
		Model: oai.AudioModel(w.model),
	}
	if language != "" {
		params.Language = oai.String(language)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	return resp.Text, nil
}

func contentTypeFor(label string) string {
	if ct := mime.TypeByExtension(filepath.Ext(label)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
