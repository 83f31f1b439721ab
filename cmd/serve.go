package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/internal/services/cleanup"
	"github.com/killallgit/audio-recap/internal/services/sessions"
	"github.com/killallgit/audio-recap/pkg/config"
	"github.com/killallgit/audio-recap/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Audio Recap API server with the configured settings.

Requires RECAP_WHISPER_API_KEY and RECAP_DIFY_API_KEY and an ffmpeg
installation.

Example:
  audio-recap serve
  audio-recap serve --port 9090
  audio-recap serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	// Use config values if flags not provided
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := logging.Log
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p.openJobs(ctx)

	store := sessions.NewStore(p.newSession, cfg.Sessions.IdleTTL, cfg.Sessions.MaxSessions, logger)
	go store.Run(ctx, cfg.Sessions.SweepInterval)

	sweeper := cleanup.NewService(cfg.Storage.TempDir, cfg.Storage.MaxTempAge, cfg.Storage.CleanupInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(cfg.Server, logger)
	server.SetDatabase(p.db)
	server.SetDependencies(&types.Dependencies{
		DB:            p.db,
		Sessions:      store,
		JobService:    p.jobs,
		Fetcher:       p.fetcher,
		Logger:        logger,
		Version:       Version,
		MaxUploadSize: cfg.Processing.MaxUploadSize,
	})
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	// Channel to receive server errors
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case err = <-serverErr:
		logger.WithError(err).Error("Server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.WithError(shutdownErr).Error("Server forced to shutdown")
		return shutdownErr
	}

	logger.Info("Server gracefully stopped")
	return err
}
