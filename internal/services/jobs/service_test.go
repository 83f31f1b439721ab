package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/killallgit/audio-recap/internal/database"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (Service, *database.DB) {
	t.Helper()
	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	return NewService(NewRepository(db.DB), logger), db
}

func TestBeginAndUpdate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	job := &models.UploadJob{SessionID: "s1", FileName: "talk.m4a", RawSize: 40 << 20}
	require.NoError(t, svc.Begin(ctx, job))
	assert.NotZero(t, job.ID)
	assert.Equal(t, models.JobStatusProcessing, job.Status)

	job.Stage = "transcode"
	job.Tier = "low"
	job.EncodedSize = 20 << 20
	require.NoError(t, svc.Update(ctx, job))

	job.Complete("conv-1")
	require.NoError(t, svc.Update(ctx, job))

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	assert.Equal(t, "low", stored.Tier)
	assert.Equal(t, int64(20<<20), stored.EncodedSize)
	assert.Equal(t, "conv-1", stored.ConversationID)
	assert.NotNil(t, stored.CompletedAt)
}

func TestBeginRequiresSession(t *testing.T) {
	svc, _ := setupService(t)
	err := svc.Begin(context.Background(), &models.UploadJob{})
	assert.Error(t, err)
}

func TestUpdateUnknownJob(t *testing.T) {
	svc, _ := setupService(t)
	err := svc.Update(context.Background(), &models.UploadJob{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGetJobNotFound(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.GetJob(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestListForSession(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Begin(ctx, &models.UploadJob{SessionID: "s1", FileName: "a.mp3"}))
	}
	require.NoError(t, svc.Begin(ctx, &models.UploadJob{SessionID: "s2", FileName: "b.mp3"}))

	jobs, err := svc.ListForSession(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Greater(t, jobs[0].ID, jobs[2].ID, "newest first")

	jobs, err = svc.ListForSession(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = svc.ListForSession(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCleanupOldJobs(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	old := &models.UploadJob{SessionID: "s1"}
	require.NoError(t, svc.Begin(ctx, old))
	old.Fail("transcribe", errors.New("boom"))
	require.NoError(t, svc.Update(ctx, old))

	running := &models.UploadJob{SessionID: "s1"}
	require.NoError(t, svc.Begin(ctx, running))

	recent := &models.UploadJob{SessionID: "s1"}
	require.NoError(t, svc.Begin(ctx, recent))
	recent.Complete("c")
	require.NoError(t, svc.Update(ctx, recent))

	past := time.Now().UTC().AddDate(0, 0, -10)
	require.NoError(t, db.DB.Model(&models.UploadJob{}).
		Where("id IN ?", []uint{old.ID, running.ID}).
		Update("created_at", past).Error)

	deleted, err := svc.CleanupOldJobs(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only terminal jobs past retention are removed")

	_, err = svc.GetJob(ctx, old.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = svc.GetJob(ctx, running.ID)
	assert.NoError(t, err)

	_, err = svc.CleanupOldJobs(ctx, 0)
	assert.Error(t, err)
}
