package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/internal/database"
	"github.com/killallgit/audio-recap/pkg/config"
	"github.com/sirupsen/logrus"
)

// defaultMaxRequestBytes leaves room for multipart overhead around a
// maximum-size upload.
const defaultMaxRequestBytes = 201 << 20

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	cfg                config.ServerConfig
	logger             logrus.FieldLogger
	db                 *database.DB
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Create Gin engine with recovery middleware only
	engine := gin.New()
	engine.Use(gin.Recovery())

	readTimeout := orDefault(cfg.ReadTimeout, 30*time.Second)
	maxHeaderBytes := cfg.MaxHeaderBytes
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = 1 << 20 // 1 MB
	}

	return &Server{
		engine:       engine,
		cfg:          cfg,
		logger:       logger.WithField("component", "http"),
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:    cfg.Address(),
			Handler: engine,
			// Uploads stream progress for the whole pipeline run
			ReadTimeout:    readTimeout,
			WriteTimeout:   orDefault(cfg.WriteTimeout, 15*time.Minute),
			IdleTimeout:    readTimeout,
			MaxHeaderBytes: maxHeaderBytes,
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *database.DB) {
	s.db = db
	if s.dependencies == nil {
		s.dependencies = &types.Dependencies{}
	}
	s.dependencies.DB = db
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
	if deps != nil && deps.DB == nil {
		deps.DB = s.db
	}
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Address returns the listen address
func (s *Server) Address() string {
	return s.httpServer.Addr
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	s.setupRoutes()
	return nil
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(RequestLogger(s.logger))
	s.engine.Use(CORS(s.cfg.CORSOrigins))

	maxBytes := s.cfg.MaxRequestBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxRequestBytes
	}
	s.engine.Use(RequestSizeLimitWithSize(maxBytes))
}

// setupRoutes delegates to the main route registration
func (s *Server) setupRoutes() {
	RegisterRoutes(s.engine, s.dependencies, RouteOptions{
		APIToken:      s.cfg.APIToken,
		RatePerMinute: s.cfg.RateLimit,
	}, s.rateLimiters, s.cleanupStop, &s.cleanupInitialized)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("address", s.httpServer.Addr).Info("HTTP server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	s.stopOnce.Do(func() { close(s.cleanupStop) })

	return s.httpServer.Shutdown(ctx)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
