package transcription

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Default client settings
const (
	DefaultLanguage    = "ja"
	DefaultMaxSegments = 10
	DefaultTimeout     = 5 * time.Minute

	// MaxSegmentSize is the speech service's hard per-call limit (25 MiB).
	MaxSegmentSize int64 = 25 << 20
)

// Client submits audio segments to a Recognizer in order and assembles the
// transcript.
type Client struct {
	recognizer  Recognizer
	language    string
	maxSegments int
	maxSize     int64
	concurrency int
	timeout     time.Duration
	logger      logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithLanguage sets the language hint sent with every segment
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithMaxSegments caps how many segments one call may carry
func WithMaxSegments(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxSegments = n
		}
	}
}

// WithMaxSegmentSize lowers the per-segment byte limit. It can never be
// raised above MaxSegmentSize.
func WithMaxSegmentSize(n int64) Option {
	return func(c *Client) {
		if n > 0 && n < MaxSegmentSize {
			c.maxSize = n
		}
	}
}

// WithConcurrency lets up to n segments be recognised at once. The
// transcript keeps input order regardless.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds each remote call
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a transcription client over recognizer
func NewClient(recognizer Recognizer, opts ...Option) *Client {
	c := &Client{
		recognizer:  recognizer,
		language:    DefaultLanguage,
		maxSegments: DefaultMaxSegments,
		maxSize:     MaxSegmentSize,
		concurrency: 1,
		timeout:     DefaultTimeout,
		logger:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.WithField("component", "transcription")
	return c
}

// Language returns the language hint in use
func (c *Client) Language() string {
	return c.language
}

// SegmentLabel is the file name a segment is submitted under.
func SegmentLabel(index int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("audio_chunk_%d.%s", index+1, ext)
}

// Transcribe recognises segments and joins their text in input order. The
// first failing segment aborts the call; no partial transcript is returned.
func (c *Client) Transcribe(ctx context.Context, segments []audio.Asset, onProgress ProgressFunc) (*Transcript, error) {
	total := len(segments)
	if total == 0 {
		return nil, &TranscriptionError{SegmentIndex: -1, Cause: fmt.Errorf("no segments to transcribe")}
	}
	if total > c.maxSegments {
		return nil, &TranscriptionError{SegmentIndex: -1, Cause: fmt.Errorf("%w: %d (max %d)", ErrTooManySegments, total, c.maxSegments)}
	}
	for i, segment := range segments {
		if segment.Size() > c.maxSize {
			return nil, &TranscriptionError{SegmentIndex: i, Cause: fmt.Errorf("%w: %d bytes (max %d)", ErrSegmentTooLarge, segment.Size(), c.maxSize)}
		}
	}

	var (
		transcript *Transcript
		err        error
	)
	if c.concurrency > 1 && total > 1 {
		transcript, err = c.transcribeParallel(ctx, segments, onProgress)
	} else {
		transcript, err = c.transcribeSequential(ctx, segments, onProgress)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(transcript.Text()) == "" {
		return nil, &TranscriptionError{SegmentIndex: -1, Cause: ErrEmptyTranscript}
	}

	c.logger.WithFields(logrus.Fields{
		"segments": total,
		"chars":    len(transcript.Text()),
	}).Info("transcription complete")

	return transcript, nil
}

func (c *Client) transcribeSequential(ctx context.Context, segments []audio.Asset, onProgress ProgressFunc) (*Transcript, error) {
	total := len(segments)
	transcript := &Transcript{
		Language: c.language,
		Segments: make([]Segment, 0, total),
	}

	for i, segment := range segments {
		text, err := c.recognizeSegment(ctx, i, total, segment)
		if err != nil {
			return nil, err
		}
		transcript.Segments = append(transcript.Segments, Segment{
			Index: i,
			Label: SegmentLabel(i, segment.Ext),
			Text:  text,
		})
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return transcript, nil
}

// transcribeParallel fans segments out, then reassembles them by index. The
// first failure cancels the rest and is the one reported.
func (c *Client) transcribeParallel(ctx context.Context, segments []audio.Asset, onProgress ProgressFunc) (*Transcript, error) {
	total := len(segments)
	texts := make([]string, total)

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, segment := range segments {
		g.Go(func() error {
			text, err := c.recognizeSegment(gctx, i, total, segment)
			if err != nil {
				return err
			}
			texts[i] = text

			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	transcript := &Transcript{
		Language: c.language,
		Segments: make([]Segment, total),
	}
	for i, segment := range segments {
		transcript.Segments[i] = Segment{Index: i, Label: SegmentLabel(i, segment.Ext), Text: texts[i]}
	}
	return transcript, nil
}

// recognizeSegment submits one segment and wraps failures with its index.
func (c *Client) recognizeSegment(ctx context.Context, index, total int, segment audio.Asset) (string, error) {
	label := SegmentLabel(index, segment.Ext)
	log := c.logger.WithFields(logrus.Fields{"segment": index + 1, "total": total, "label": label})
	log.WithField("bytes", segment.Size()).Debug("submitting segment")

	text, err := c.recognize(ctx, segment, label)
	if err != nil {
		log.WithError(err).Error("segment transcription failed")
		return "", &TranscriptionError{SegmentIndex: index, Cause: err}
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) recognize(ctx context.Context, segment audio.Asset, label string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.recognizer.Recognize(ctx, bytes.NewReader(segment.Data), label, c.language)
}
