package cmd

import (
	"context"
	"fmt"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/database"
	"github.com/killallgit/audio-recap/internal/services/jobs"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/killallgit/audio-recap/internal/services/summarization"
	"github.com/killallgit/audio-recap/internal/services/transcription"
	"github.com/killallgit/audio-recap/pkg/config"
	"github.com/killallgit/audio-recap/pkg/download"
	"github.com/killallgit/audio-recap/pkg/ffmpeg"
	"github.com/sirupsen/logrus"
)

// pipeline holds the collaborators shared by every session.
type pipeline struct {
	cfg         *config.Config
	logger      logrus.FieldLogger
	transcoder  orchestrator.Transcoder
	transcriber orchestrator.Transcriber
	summarizer  orchestrator.Summarizer
	fetcher     *download.Downloader
	jobs        jobs.Service
	db          *database.DB
}

// newPipeline builds the remote clients and the codec from cfg. Missing
// credentials or a missing ffmpeg are startup failures.
func newPipeline(cfg *config.Config, logger logrus.FieldLogger) (*pipeline, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	codec := ffmpeg.New(cfg.Processing.FFmpegPath, cfg.Processing.FFprobePath, cfg.Processing.FFmpegTimeout)
	if err := codec.ValidateBinaries(); err != nil {
		return nil, fmt.Errorf("audio codec unavailable: %w", err)
	}

	recognizer, err := transcription.NewWhisperRecognizer(transcription.WhisperConfig{
		APIKey:  cfg.Whisper.APIKey,
		BaseURL: cfg.Whisper.BaseURL,
		Model:   cfg.Whisper.Model,
		Timeout: cfg.Whisper.Timeout,
	})
	if err != nil {
		return nil, err
	}

	summarizer, err := summarization.NewClient(summarization.Config{
		BaseURL: cfg.Dify.BaseURL,
		APIKey:  cfg.Dify.APIKey,
		AppID:   cfg.Dify.AppID,
		User:    cfg.Dify.User,
		Timeout: cfg.Dify.Timeout,
	}, summarization.WithLogger(logger.WithField("component", "summarization")))
	if err != nil {
		return nil, err
	}

	opts := download.DefaultOptions()
	opts.MaxSize = cfg.Processing.MaxUploadSize
	if cfg.Download.Timeout > 0 {
		opts.Timeout = cfg.Download.Timeout
	}
	if cfg.Download.UserAgent != "" {
		opts.UserAgent = cfg.Download.UserAgent
	}

	transcriber := transcription.NewClient(recognizer,
		transcription.WithLanguage(cfg.Whisper.Language),
		transcription.WithMaxSegments(cfg.Whisper.MaxSegments),
		transcription.WithMaxSegmentSize(cfg.Whisper.MaxFileSize),
		transcription.WithConcurrency(cfg.Whisper.Concurrency),
		transcription.WithTimeout(cfg.Whisper.Timeout),
		transcription.WithLogger(logger),
	)

	return &pipeline{
		cfg:         cfg,
		logger:      logger,
		transcoder:  audio.NewTranscoder(codec, cfg.Storage.TempDir, logger),
		transcriber: transcriber,
		summarizer:  summarizer,
		fetcher:     download.NewDownloader(opts, logger.WithField("component", "download")),
	}, nil
}

// openJobs opens the job store when enabled. A store that cannot be opened
// is logged and skipped; uploads work without it.
func (p *pipeline) openJobs(ctx context.Context) {
	if !p.cfg.Database.Enabled {
		return
	}

	db, err := database.InitializeWithMigrations()
	if err != nil {
		p.logger.WithError(err).Warn("Upload job records disabled")
		return
	}
	p.db = db
	p.jobs = jobs.NewService(jobs.NewRepository(db.DB), p.logger)

	if days := p.cfg.Database.RetentionDays; days > 0 {
		if n, err := p.jobs.CleanupOldJobs(ctx, days); err != nil {
			p.logger.WithError(err).Warn("Failed to prune old upload jobs")
		} else if n > 0 {
			p.logger.WithField("deleted", n).Info("Pruned old upload jobs")
		}
	}
}

func (p *pipeline) close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.logger.WithError(err).Warn("Failed to close database")
		}
	}
}

// newSession builds an orchestrator session over the shared collaborators.
func (p *pipeline) newSession(id string) *orchestrator.Session {
	opts := []orchestrator.Option{orchestrator.WithLogger(p.logger)}
	if p.jobs != nil {
		opts = append(opts, orchestrator.WithJobRecorder(p.jobs))
	}
	return orchestrator.NewSession(id, orchestrator.Config{
		Ceiling:            p.cfg.Whisper.MaxFileSize,
		MaxUploadSize:      p.cfg.Processing.MaxUploadSize,
		DefaultInstruction: p.cfg.Dify.Instruction,
	}, p.transcoder, p.transcriber, p.summarizer, opts...)
}
