package orchestrator

import (
	"errors"
	"fmt"

	"github.com/killallgit/audio-recap/internal/audio"
)

var (
	// ErrNoActiveConversation is returned by FollowUp before any upload has
	// been summarized (or after a reset).
	ErrNoActiveConversation = errors.New("no active conversation: upload an audio file first")

	// ErrBusy is returned when another action is still running on the session.
	ErrBusy = errors.New("session is busy with another action")

	// ErrEmptyAsset is returned for zero-byte uploads.
	ErrEmptyAsset = errors.New("audio file is empty")

	// ErrEmptyQuestion is returned for a blank follow-up.
	ErrEmptyQuestion = errors.New("question is empty")
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StillTooLargeError means the re-encoded asset is still over the ceiling.
// No further compression pass is attempted.
type StillTooLargeError struct {
	Size    int64
	Ceiling int64
	Tier    audio.Tier
}

func (e *StillTooLargeError) Error() string {
	return fmt.Sprintf("audio is still too large after compression (%s): %.1f MiB exceeds the %.1f MiB limit, please upload a shorter recording",
		e.Tier, mib(e.Size), mib(e.Ceiling))
}

// UploadTooLargeError rejects an upload before any processing.
type UploadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *UploadTooLargeError) Error() string {
	return fmt.Sprintf("audio file is %.1f MiB, the maximum is %.0f MiB", mib(e.Size), mib(e.Limit))
}

// UnsupportedFormatError rejects an upload whose container is not accepted.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "audio file has no extension"
	}
	return fmt.Sprintf("unsupported audio format %q", e.Ext)
}

func mib(n int64) float64 {
	return float64(n) / (1 << 20)
}

// StageOf returns the stage a failure was tagged with, or "" if none.
func StageOf(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
