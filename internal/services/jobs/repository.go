package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/audio-recap/internal/models"
	"gorm.io/gorm"
)

// Repository errors
var (
	ErrJobNotFound = errors.New("job not found")
)

// Repository defines the interface for upload job persistence
type Repository interface {
	CreateJob(ctx context.Context, job *models.UploadJob) error
	SaveJob(ctx context.Context, job *models.UploadJob) error
	GetJob(ctx context.Context, id uint) (*models.UploadJob, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.UploadJob, error)
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new job repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) CreateJob(ctx context.Context, job *models.UploadJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// SaveJob writes every column of an existing job
func (r *repository) SaveJob(ctx context.Context, job *models.UploadJob) error {
	if job.ID == 0 {
		return fmt.Errorf("saving job: %w", ErrJobNotFound)
	}
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *repository) GetJob(ctx context.Context, id uint) (*models.UploadJob, error) {
	var job models.UploadJob
	err := r.db.WithContext(ctx).First(&job, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return &job, nil
}

// ListBySession returns the newest jobs of a session first
func (r *repository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.UploadJob, error) {
	var jobs []*models.UploadJob
	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// DeleteOldJobs hard-deletes terminal jobs created before olderThan
func (r *repository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", olderThan).
		Where("status IN ?", []models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed}).
		Delete(&models.UploadJob{})
	return result.RowsAffected, result.Error
}
