package jobs

import (
	"context"

	"github.com/killallgit/audio-recap/internal/models"
)

// Service defines the business logic interface for upload job records
type Service interface {
	// Recording, used by the orchestrator while an upload runs
	Begin(ctx context.Context, job *models.UploadJob) error
	Update(ctx context.Context, job *models.UploadJob) error

	// Retrieval
	GetJob(ctx context.Context, jobID uint) (*models.UploadJob, error)
	ListForSession(ctx context.Context, sessionID string, limit int) ([]*models.UploadJob, error)

	// Maintenance
	CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error)
}
