package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/audio-recap/internal/models"
	"github.com/sirupsen/logrus"
)

const DefaultListLimit = 50

type service struct {
	repo   Repository
	logger logrus.FieldLogger
}

func NewService(repo Repository, logger logrus.FieldLogger) Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &service{
		repo:   repo,
		logger: logger,
	}
}

func (s *service) Begin(ctx context.Context, job *models.UploadJob) error {
	if job.SessionID == "" {
		return errors.New("job has no session id")
	}
	job.Start()

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"session_id": job.SessionID,
		"raw_size":   job.RawSize,
	}).Debug("Upload job started")

	return nil
}

func (s *service) Update(ctx context.Context, job *models.UploadJob) error {
	if err := s.repo.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("updating job %d: %w", job.ID, err)
	}

	if job.IsTerminal() {
		s.logger.WithFields(logrus.Fields{
			"job_id":      job.ID,
			"status":      job.Status,
			"error_stage": job.ErrorStage,
			"duration":    job.Duration().Round(time.Millisecond),
		}).Info("Upload job finished")
	}
	return nil
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*models.UploadJob, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *service) ListForSession(ctx context.Context, sessionID string, limit int) ([]*models.UploadJob, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return s.repo.ListBySession(ctx, sessionID, limit)
}

func (s *service) CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteOldJobs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old jobs: %w", err)
	}

	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("Cleaned up old upload jobs")
	}
	return deleted, nil
}
