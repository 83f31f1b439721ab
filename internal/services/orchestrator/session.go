// Package orchestrator sequences the upload pipeline (plan, transcode,
// transcribe, summarize) and follow-up turns for one user session.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/summarization"
	"github.com/sirupsen/logrus"
)

// Session owns one conversation. Actions (NewUpload, FollowUp, Reset) run
// one at a time; a second action while one is in flight fails with ErrBusy.
type Session struct {
	id          string
	cfg         Config
	transcoder  Transcoder
	transcriber Transcriber
	summarizer  Summarizer
	jobs        JobRecorder
	logger      logrus.FieldLogger

	action  sync.Mutex
	running atomic.Bool

	mu       sync.RWMutex
	conv     summarization.Conversation
	lastUsed time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithJobRecorder records every upload as a job.
func WithJobRecorder(r JobRecorder) Option {
	return func(s *Session) {
		s.jobs = r
	}
}

// WithLogger sets the session logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates an Idle session.
func NewSession(id string, cfg Config, transcoder Transcoder, transcriber Transcriber, summarizer Summarizer, opts ...Option) *Session {
	if cfg.Ceiling <= 0 || cfg.Ceiling > DefaultCeiling {
		cfg.Ceiling = DefaultCeiling
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	s := &Session{
		id:          id,
		cfg:         cfg,
		transcoder:  transcoder,
		transcriber: transcriber,
		summarizer:  summarizer,
		logger:      logrus.StandardLogger(),
		lastUsed:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("session_id", id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State reports Idle or Active.
func (s *Session) State() summarization.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.State()
}

// ConversationID returns the current identifier, empty when Idle.
func (s *Session) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.ID
}

// Messages returns a copy of the displayed history.
func (s *Session) Messages() []summarization.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]summarization.Message, len(s.conv.Messages))
	copy(out, s.conv.Messages)
	return out
}

// LastUsed is the time the last action started.
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// Busy reports whether an action is in flight.
func (s *Session) Busy() bool {
	return s.running.Load()
}

// begin claims the action lock; end must follow when it succeeds.
func (s *Session) begin() bool {
	if !s.action.TryLock() {
		return false
	}
	s.running.Store(true)
	return true
}

func (s *Session) end() {
	s.running.Store(false)
	s.action.Unlock()
}

// Reset clears the conversation identifier and the message history.
func (s *Session) Reset() error {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	s.mu.Lock()
	s.conv = s.conv.Reset()
	s.lastUsed = time.Now()
	s.mu.Unlock()

	s.logger.Info("Conversation reset")
	return nil
}

// NewUpload runs the full pipeline for one asset and returns the summary.
// The first failing stage aborts the action; its error is a *StageError.
func (s *Session) NewUpload(ctx context.Context, up Upload, onProgress ProgressFunc) (*Result, error) {
	if !s.begin() {
		return nil, ErrBusy
	}
	defer s.end()
	s.touch()

	notify := safeNotify(onProgress)
	asset := up.Asset
	log := s.logger.WithFields(logrus.Fields{
		"file":     asset.Name,
		"raw_size": asset.Size(),
	})

	job := s.beginJob(ctx, up)
	fail := func(stage Stage, err error) (*Result, error) {
		log.WithError(err).WithField("stage", stage).Warn("Upload failed")
		s.recordJob(ctx, job, func(j *models.UploadJob) { j.Fail(string(stage), err) })
		return nil, &StageError{Stage: stage, Err: err}
	}

	notify(Progress{Stage: StageValidate})
	if err := s.validate(asset); err != nil {
		return fail(StageValidate, err)
	}

	notify(Progress{Stage: StagePlan})
	plan := audio.Plan(asset.Size(), s.cfg.Ceiling)
	log = log.WithField("tier", plan.Tier.String())
	s.recordJob(ctx, job, func(j *models.UploadJob) {
		j.Stage = string(StagePlan)
		j.Tier = plan.Tier.String()
	})

	encoded := asset
	if plan.NeedsTranscode() {
		notify(Progress{Stage: StageTranscode, Tier: plan.Tier.String()})
		out, err := s.transcoder.Transcode(ctx, asset, plan)
		if err != nil {
			return fail(StageTranscode, err)
		}
		encoded = out
		log.WithField("encoded_size", encoded.Size()).Info("Audio re-encoded")
	}
	if encoded.Size() > s.cfg.Ceiling {
		return fail(StageTranscode, &StillTooLargeError{Size: encoded.Size(), Ceiling: s.cfg.Ceiling, Tier: plan.Tier})
	}

	segments := []audio.Asset{encoded}
	s.recordJob(ctx, job, func(j *models.UploadJob) {
		j.Stage = string(StageTranscribe)
		j.EncodedSize = encoded.Size()
		j.SegmentsTotal = len(segments)
	})

	notify(Progress{Stage: StageTranscribe, SegmentIndex: 0, SegmentTotal: len(segments)})
	transcript, err := s.transcriber.Transcribe(ctx, segments, func(index, total int) {
		if job != nil {
			job.SegmentsDone = index
		}
		notify(Progress{Stage: StageTranscribe, SegmentIndex: index, SegmentTotal: total})
	})
	if err != nil {
		return fail(StageTranscribe, err)
	}

	instruction := up.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = s.cfg.DefaultInstruction
	}

	s.recordJob(ctx, job, func(j *models.UploadJob) { j.Stage = string(StageSummarize) })
	notify(Progress{Stage: StageSummarize})

	next, answer, err := s.summarizer.Submit(ctx, s.conversation(), summarization.Turn{
		Query:       transcript.Text(),
		Instruction: instruction,
		Display:     fmt.Sprintf(UploadMessageFormat, asset.Name),
	}, func(fragment string) {
		notify(Progress{Stage: StageSummarize, Fragment: fragment})
	})
	if err != nil {
		return fail(StageSummarize, err)
	}
	s.setConversation(next)

	s.recordJob(ctx, job, func(j *models.UploadJob) { j.Complete(next.ID) })
	log.WithField("conversation_id", next.ID).Info("Upload summarized")

	result := &Result{
		Answer:         answer.Text,
		ConversationID: next.ID,
		Transcript:     transcript.Text(),
		Plan:           plan,
		Tier:           plan.Tier.String(),
		RawSize:        asset.Size(),
		EncodedSize:    encoded.Size(),
	}
	if job != nil {
		result.JobID = job.ID
	}
	return result, nil
}

// FollowUp asks a question within the active conversation.
func (s *Session) FollowUp(ctx context.Context, question string, onProgress ProgressFunc) (*Reply, error) {
	if !s.begin() {
		return nil, ErrBusy
	}
	defer s.end()
	s.touch()

	conv := s.conversation()
	if conv.State() != summarization.StateActive {
		return nil, ErrNoActiveConversation
	}
	if strings.TrimSpace(question) == "" {
		return nil, &StageError{Stage: StageValidate, Err: ErrEmptyQuestion}
	}

	notify := safeNotify(onProgress)
	notify(Progress{Stage: StageSummarize})

	next, answer, err := s.summarizer.Submit(ctx, conv, summarization.Turn{Query: question}, func(fragment string) {
		notify(Progress{Stage: StageSummarize, Fragment: fragment})
	})
	if err != nil {
		s.logger.WithError(err).WithField("conversation_id", conv.ID).Warn("Follow-up failed")
		return nil, &StageError{Stage: StageSummarize, Err: err}
	}
	s.setConversation(next)

	return &Reply{Answer: answer.Text, ConversationID: next.ID}, nil
}

func (s *Session) validate(asset audio.Asset) error {
	if !audio.IsSupported(asset.Ext) {
		return &UnsupportedFormatError{Ext: asset.Ext}
	}
	if asset.Size() == 0 {
		return ErrEmptyAsset
	}
	if asset.Size() > s.cfg.MaxUploadSize {
		return &UploadTooLargeError{Size: asset.Size(), Limit: s.cfg.MaxUploadSize}
	}
	return nil
}

func (s *Session) conversation() summarization.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv
}

func (s *Session) setConversation(conv summarization.Conversation) {
	s.mu.Lock()
	s.conv = conv
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// beginJob returns nil when no recorder is configured or it fails; job
// records never decide the outcome of an upload.
func (s *Session) beginJob(ctx context.Context, up Upload) *models.UploadJob {
	if s.jobs == nil {
		return nil
	}
	source := up.Source
	if source == "" {
		source = models.JobSourceUpload
	}
	job := &models.UploadJob{
		SessionID: s.id,
		FileName:  up.Asset.Name,
		Source:    source,
		Stage:     string(StageValidate),
		RawSize:   up.Asset.Size(),
	}
	if err := s.jobs.Begin(ctx, job); err != nil {
		s.logger.WithError(err).Warn("Could not record upload job")
		return nil
	}
	return job
}

func (s *Session) recordJob(ctx context.Context, job *models.UploadJob, mutate func(*models.UploadJob)) {
	if job == nil {
		return
	}
	mutate(job)
	if err := s.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Warn("Could not update upload job")
	}
}

func safeNotify(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(Progress) {}
	}
	return fn
}
