package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/audio-recap/api/health"
	"github.com/killallgit/audio-recap/api/sessions"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/api/version"
)

// RouteOptions configures the guarded API routes
type RouteOptions struct {
	// APIToken, when set, is required as a bearer token on /api/v1.
	APIToken string
	// RatePerMinute bounds upload and message requests per client IP.
	// Zero disables rate limiting.
	RatePerMinute int
}

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, opts RouteOptions, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Register public routes (no auth, no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")
	v1.Use(APIToken(opts.APIToken))

	// Uploads and follow-ups call the speech and conversational services, so
	// they share one per-client budget
	actionLimit := func(c *gin.Context) { c.Next() }
	if opts.RatePerMinute > 0 {
		burst := max(opts.RatePerMinute/6, 1)
		actionLimit = PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, time.Minute/time.Duration(opts.RatePerMinute), burst)
	}

	sessions.RegisterRoutes(v1.Group("/sessions"), deps, actionLimit)
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
