package transcription

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins segment texts in the assembled transcript.
const Separator = " "

// ErrEmptyTranscript is reported when every segment came back with no text.
var ErrEmptyTranscript = errors.New("no speech recognised in any segment")

// ErrTooManySegments is reported before any remote call when the caller
// submits more segments than the client accepts.
var ErrTooManySegments = errors.New("too many segments")

// ErrSegmentTooLarge rejects a segment above the per-call payload limit.
var ErrSegmentTooLarge = errors.New("segment exceeds the payload limit")

// Segment is the recognised text for one submitted audio segment.
type Segment struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Transcript is the ordered result of a Transcribe call.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Text concatenates segment texts in segment order.
func (t *Transcript) Text() string {
	if t == nil {
		return ""
	}
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, Separator)
}

// TranscriptionError identifies the segment whose recognition failed.
// SegmentIndex is zero-based; -1 means the failure is not tied to one segment.
type TranscriptionError struct {
	SegmentIndex int
	Cause        error
}

func (e *TranscriptionError) Error() string {
	if e.SegmentIndex < 0 {
		return fmt.Sprintf("transcription failed: %v", e.Cause)
	}
	return fmt.Sprintf("transcription failed at segment %d: %v", e.SegmentIndex+1, e.Cause)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}
