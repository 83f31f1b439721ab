package types

import (
	"github.com/killallgit/audio-recap/internal/database"
	"github.com/killallgit/audio-recap/internal/services/jobs"
	"github.com/killallgit/audio-recap/internal/services/sessions"
	"github.com/killallgit/audio-recap/pkg/download"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves a remote audio file named by URL.
type Fetcher = download.Fetcher

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB         *database.DB
	Sessions   *sessions.Store
	JobService jobs.Service
	Fetcher    Fetcher
	Logger     logrus.FieldLogger

	// Version is reported by GET /version.
	Version string

	// MaxUploadSize bounds the multipart part read into memory.
	MaxUploadSize int64
}

// Log returns the configured logger or the standard one.
func (d *Dependencies) Log() logrus.FieldLogger {
	if d == nil || d.Logger == nil {
		return logrus.StandardLogger()
	}
	return d.Logger
}
