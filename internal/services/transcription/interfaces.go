package transcription

import (
	"context"
	"io"
)

// Recognizer is the external speech-to-text capability. One call per segment.
type Recognizer interface {
	// Recognize returns the text spoken in audio. label carries the segment's
	// file name (its extension tells the service the container).
	Recognize(ctx context.Context, audio io.Reader, label, language string) (string, error)
}

// ProgressFunc receives segment progress (1-based index of the segment just
// finished, total). Implementations must return quickly.
type ProgressFunc func(index, total int)
