package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/killallgit/audio-recap/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// RECAP_WHISPER_API_KEY for whisper.api_key.
const EnvPrefix = "RECAP"

// MaxWhisperFileSize is the speech service's hard per-call payload limit.
// whisper.max_file_size may lower the ceiling but never raise it.
const MaxWhisperFileSize int64 = 25 << 20

var (
	once        sync.Once
	initErr     error
	initialized bool
	mu          sync.Mutex
)

// placeholder values that must never reach a remote service
var placeholders = []string{
	"YOUR_KEY_HERE",
	"YOUR_API_KEY",
	"changeme",
	"CHANGEME",
	"sk-...",
	"app-...",
}

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		setDefaults()

		viper.SetEnvPrefix(EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !os.IsNotExist(err) && !errors.As(err, &notFound) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		applyDefaults()

		if err := validate(); err != nil {
			initErr = apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid configuration")
			return
		}

		mu.Lock()
		initialized = true
		mu.Unlock()
	})

	return initErr
}

// IsInitialized reports whether Init completed successfully
func IsInitialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return initialized
}

// Reset clears viper state so Init can run again. Used by tests.
func Reset() {
	viper.Reset()
	once = sync.Once{}
	initErr = nil
	mu.Lock()
	initialized = false
	mu.Unlock()
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.ApplyDefaults()
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 config value
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if size := viper.GetInt64("whisper.max_file_size"); size <= 0 || size > MaxWhisperFileSize {
		return fmt.Errorf("invalid whisper.max_file_size: %d (must be 1..%d)", size, MaxWhisperFileSize)
	}

	if viper.GetInt64("processing.max_upload_size") <= 0 {
		return fmt.Errorf("invalid processing.max_upload_size: %d", viper.GetInt64("processing.max_upload_size"))
	}

	if _, err := logrus.ParseLevel(viper.GetString("logging.level")); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}

	return validateAPIKeys()
}

// applyDefaults corrects values that have a safe fallback instead of
// rejecting them.
func applyDefaults() {
	if viper.GetBool("database.enabled") && viper.GetString("database.path") == "" {
		logrus.Warn("No database path configured, upload jobs will not be recorded")
		viper.Set("database.enabled", false)
	}

	if viper.GetInt("whisper.max_segments") <= 0 {
		viper.Set("whisper.max_segments", 10)
	}

	if viper.GetInt("whisper.concurrency") <= 0 {
		viper.Set("whisper.concurrency", 1)
	}
}

// validateAPIKeys rejects placeholder credentials in production and warns
// elsewhere. Missing keys are checked by the commands that need them.
func validateAPIKeys() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	for _, key := range []string{"whisper.api_key", "dify.api_key"} {
		if !isPlaceholder(viper.GetString(key)) {
			continue
		}
		if isProduction {
			return fmt.Errorf("invalid %s: cannot use placeholder values in production", key)
		}
		logrus.Warnf("%s is using a placeholder value", key)
	}

	return nil
}

func isPlaceholder(v string) bool {
	for _, p := range placeholders {
		if v == p {
			return true
		}
	}
	return false
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Whisper.MaxFileSize <= 0 || c.Whisper.MaxFileSize > MaxWhisperFileSize {
		return fmt.Errorf("invalid whisper.max_file_size: %d (must be 1..%d)", c.Whisper.MaxFileSize, MaxWhisperFileSize)
	}

	if c.Processing.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid processing.max_upload_size: %d", c.Processing.MaxUploadSize)
	}

	return nil
}

// ApplyDefaults fills segment limits left unset.
func (c *Config) ApplyDefaults() {
	if c.Whisper.MaxSegments <= 0 {
		c.Whisper.MaxSegments = 10
	}
	if c.Whisper.Concurrency <= 0 {
		c.Whisper.Concurrency = 1
	}
}

// RequireCredentials checks the keys needed to reach both remote services.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Whisper.APIKey == "" {
		missing = append(missing, EnvPrefix+"_WHISPER_API_KEY")
	}
	if c.Dify.APIKey == "" {
		missing = append(missing, EnvPrefix+"_DIFY_API_KEY")
	}
	if len(missing) > 0 {
		return apperrors.ConfigRequiredError(missing...)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 5*time.Minute)
	viper.SetDefault("server.write_timeout", 15*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_request_bytes", 210*1024*1024)
	viper.SetDefault("server.api_token", "")
	viper.SetDefault("server.rate_limit", 30)
	viper.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "./data/recap.db")
	viper.SetDefault("database.verbose", false)
	viper.SetDefault("database.retention_days", 30)

	// Processing defaults
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.ffmpeg_timeout", 5*time.Minute)
	viper.SetDefault("processing.max_upload_size", 200*1024*1024)

	// Whisper defaults
	viper.SetDefault("whisper.api_key", "")
	viper.SetDefault("whisper.base_url", "https://api.openai.com/v1")
	viper.SetDefault("whisper.model", "whisper-1")
	viper.SetDefault("whisper.language", "ja")
	viper.SetDefault("whisper.timeout", 5*time.Minute)
	viper.SetDefault("whisper.max_file_size", 26214400)
	viper.SetDefault("whisper.max_segments", 10)
	viper.SetDefault("whisper.concurrency", 1)

	// Dify defaults
	viper.SetDefault("dify.api_key", "")
	viper.SetDefault("dify.app_id", "")
	viper.SetDefault("dify.base_url", "https://api.dify.ai/v1")
	viper.SetDefault("dify.user", "audio-recap-user")
	viper.SetDefault("dify.timeout", 120*time.Second)
	viper.SetDefault("dify.instruction", "")

	// Storage defaults
	viper.SetDefault("storage.temp_dir", os.TempDir())
	viper.SetDefault("storage.max_temp_age", 1*time.Hour)
	viper.SetDefault("storage.cleanup_interval", 15*time.Minute)

	// Download defaults
	viper.SetDefault("download.timeout", 5*time.Minute)
	viper.SetDefault("download.user_agent", "AudioRecap/1.0")

	// Session defaults
	viper.SetDefault("sessions.idle_ttl", 2*time.Hour)
	viper.SetDefault("sessions.sweep_interval", 5*time.Minute)
	viper.SetDefault("sessions.max_sessions", 1000)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}
