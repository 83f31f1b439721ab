package config

import (
	"net"
	"strconv"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Processing  ProcessingConfig `mapstructure:"processing"`
	Whisper     WhisperConfig    `mapstructure:"whisper"`
	Dify        DifyConfig       `mapstructure:"dify"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Download    DownloadConfig   `mapstructure:"download"`
	Sessions    SessionsConfig   `mapstructure:"sessions"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes"`
	APIToken        string        `mapstructure:"api_token"`
	RateLimit       int           `mapstructure:"rate_limit"` // requests per minute per client
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Address returns host:port for the listener
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig contains the upload job store settings
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`

	// RetentionDays prunes finished job records older than this at startup.
	RetentionDays int `mapstructure:"retention_days"`
}

// ProcessingConfig contains codec settings
type ProcessingConfig struct {
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	FFprobePath   string        `mapstructure:"ffprobe_path"`
	FFmpegTimeout time.Duration `mapstructure:"ffmpeg_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
}

// WhisperConfig contains speech-to-text settings
type WhisperConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Language    string        `mapstructure:"language"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	MaxSegments int           `mapstructure:"max_segments"`
	Concurrency int           `mapstructure:"concurrency"`
}

// DifyConfig contains conversational service settings
type DifyConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	AppID       string        `mapstructure:"app_id"`
	BaseURL     string        `mapstructure:"base_url"`
	User        string        `mapstructure:"user"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Instruction string        `mapstructure:"instruction"`
}

// StorageConfig contains scratch storage settings
type StorageConfig struct {
	TempDir         string        `mapstructure:"temp_dir"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DownloadConfig contains remote asset fetch settings
type DownloadConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SessionsConfig contains in-memory session registry settings
type SessionsConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxSessions   int           `mapstructure:"max_sessions"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}
