// Package config handles environment-based configuration for the dashboard.
package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents the complete dashboard configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Paths    PathConfig
	Download DownloadConfig
	Tail     TailConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string
	Port string
	Mode string // "debug" or "release"
}

// PathConfig contains the filesystem layout of the node.
type PathConfig struct {
	WorkspaceDir string // root of the node workspace
	ComfyUIDir   string // ComfyUI installation (models/, input/, output/ live under it)
	LogFile      string // append-only log file consumed by the tailer
	ModelsConfig string // models configuration: local path or http(s) URL
	StartScript  string // start.sh used to discover installed custom nodes
}

// DownloadConfig contains model download settings.
type DownloadConfig struct {
	MaxConcurrent int  // global bound on simultaneous fetches
	Force         bool // re-download files that already exist
	Skip          bool // skip the startup model download entirely
}

// TailConfig contains log tailing settings.
type TailConfig struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
//
// Configuration variables:
//   - COMFY_SERVER_HOST (default: "0.0.0.0")
//   - COMFY_SERVER_PORT (default: "8189")
//   - COMFY_SERVER_MODE (default: "debug")
//   - COMFY_WORKSPACE_DIR (default: "/workspace")
//   - COMFY_DIR (default: "<workspace>/ComfyUI")
//   - COMFY_LOG_FILE (default: "<workspace>/logs/comfyui.log")
//   - MODELS_CONFIG_URL (default: "<workspace>/models_config.json"; may be an http(s) URL)
//   - COMFY_START_SCRIPT (default: "/start.sh")
//   - COMFY_MAX_CONCURRENT_DOWNLOADS (default: "5")
//   - FORCE_MODEL_DOWNLOAD (default: "false")
//   - SKIP_MODEL_DOWNLOAD (default: "false")
//   - COMFY_TAIL_POLL_INTERVAL (default: "100ms")
//   - COMFY_TAIL_ERROR_BACKOFF (default: "1s")
//
// Returns an error if validation fails.
func Load() (*Config, error) {
	workspace := getEnv("COMFY_WORKSPACE_DIR", "/workspace")

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("COMFY_SERVER_HOST", "0.0.0.0"),
			Port: getEnv("COMFY_SERVER_PORT", "8189"),
			Mode: getEnv("COMFY_SERVER_MODE", "debug"),
		},
		Paths: PathConfig{
			WorkspaceDir: workspace,
			ComfyUIDir:   getEnv("COMFY_DIR", filepath.Join(workspace, "ComfyUI")),
			LogFile:      getEnv("COMFY_LOG_FILE", filepath.Join(workspace, "logs", "comfyui.log")),
			ModelsConfig: getEnv("MODELS_CONFIG_URL", filepath.Join(workspace, "models_config.json")),
			StartScript:  getEnv("COMFY_START_SCRIPT", "/start.sh"),
		},
		Download: DownloadConfig{
			MaxConcurrent: getEnvInt("COMFY_MAX_CONCURRENT_DOWNLOADS", 5),
			Force:         getEnvBool("FORCE_MODEL_DOWNLOAD", false),
			Skip:          getEnvBool("SKIP_MODEL_DOWNLOAD", false),
		},
		Tail: TailConfig{
			PollInterval: getEnvDuration("COMFY_TAIL_POLL_INTERVAL", 100*time.Millisecond),
			ErrorBackoff: getEnvDuration("COMFY_TAIL_ERROR_BACKOFF", time.Second),
		},
	}

	// Validate configuration
	if err := validate(cfg); err != nil {
		log.Printf("Configuration validation failed: %v", err)
		return nil, errors.New("invalid configuration")
	}

	// Log loaded configuration
	log.Printf("Configuration loaded:")
	log.Printf("  Server: %s:%s (mode: %s)", cfg.Server.Host, cfg.Server.Port, cfg.Server.Mode)
	log.Printf("  ComfyUI: %s", cfg.Paths.ComfyUIDir)
	log.Printf("  Log file: %s", cfg.Paths.LogFile)
	log.Printf("  Models config: %s", cfg.Paths.ModelsConfig)
	log.Printf("  Downloads: max_concurrent=%d, force=%v, skip=%v",
		cfg.Download.MaxConcurrent, cfg.Download.Force, cfg.Download.Skip)

	return cfg, nil
}

// validate checks if the configuration is valid.
func validate(cfg *Config) error {
	if cfg.Download.MaxConcurrent < 1 {
		return errors.New("max concurrent downloads must be at least 1")
	}
	if cfg.Tail.PollInterval <= 0 {
		return errors.New("tail poll interval must be positive")
	}
	if cfg.Tail.ErrorBackoff <= 0 {
		return errors.New("tail error backoff must be positive")
	}
	if cfg.Paths.LogFile == "" {
		return errors.New("log file path must not be empty")
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: invalid boolean value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value.
// Accepts values like "100ms", "30s", "5m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}
