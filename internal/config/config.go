package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Database contains locations for the two independent SQLite stores.
type Database struct {
	RecordsPath string `toml:"records_path"`
	QueuePath   string `toml:"queue_path"`
}

// Storage contains S3-compatible object storage configuration. Endpoint is
// optional and overrides the AWS default for MinIO-style deployments.
type Storage struct {
	Bucket        string `toml:"bucket"`
	ResultsPrefix string `toml:"results_prefix"`
	Region        string `toml:"region"`
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	UsePathStyle  bool   `toml:"use_path_style"`
}

// Intake contains tier classification thresholds and input validation limits.
type Intake struct {
	MaxSizeBytes   int64    `toml:"max_size_bytes"`
	HeavySizeBytes int64    `toml:"heavy_size_bytes"`
	HeavyPageCount int      `toml:"heavy_page_count"`
	AllowedTypes   []string `toml:"allowed_types"`
	ForceTier      string   `toml:"force_tier"`
}

// Dispatch contains work queue submission parameters.
type Dispatch struct {
	MaxAttempts       int `toml:"max_attempts"`
	LeaseSeconds      int `toml:"lease_seconds"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
	EnqueueRetries    int `toml:"enqueue_retries"`
}

// Workers contains worker lane timing and heartbeat tuning.
type Workers struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Reconcile contains sweep cadence and per-tier SLA budgets.
type Reconcile struct {
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
	FastSLAMinutes       int `toml:"fast_sla_minutes"`
	HeavySLAMinutes      int `toml:"heavy_sla_minutes"`
	MaxRetries           int `toml:"max_retries"`
}

// Recycle contains soft-delete retention policy.
type Recycle struct {
	RetentionDays        int `toml:"retention_days"`
	PurgeIntervalMinutes int `toml:"purge_interval_minutes"`
}

// Extraction contains external OCR/refinement engine endpoints.
type Extraction struct {
	FastEndpoint   string   `toml:"fast_endpoint"`
	BatchEndpoint  string   `toml:"batch_endpoint"`
	APIKey         string   `toml:"api_key"`
	RequestTimeout int      `toml:"request_timeout"`
	PollInterval   int      `toml:"poll_interval"`
	Languages      []string `toml:"languages"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Processed      bool   `toml:"processed"`
	Failures       bool   `toml:"failures"`
	DeadLetters    bool   `toml:"dead_letters"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for inkwell.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, API bind address and token
//   - Database: records store and work queue store locations
//   - Storage: S3-compatible object storage for document bytes and results
//   - Intake: routing thresholds and accepted content types
//   - Dispatch: queue submission and retry parameters
//   - Workers: lane polling and heartbeat tuning
//   - Reconcile: sweep interval, per-tier SLAs, retry budget
//   - Recycle: soft-delete retention and purge cadence
//   - Extraction: external engine endpoints and languages
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Database      Database      `toml:"database"`
	Storage       Storage       `toml:"storage"`
	Intake        Intake        `toml:"intake"`
	Dispatch      Dispatch      `toml:"dispatch"`
	Workers       Workers       `toml:"workers"`
	Reconcile     Reconcile     `toml:"reconcile"`
	Recycle       Recycle       `toml:"recycle"`
	Extraction    Extraction    `toml:"extraction"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/inkwell/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized; environment overrides
// are applied after the file is read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("inkwell.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("INKWELL_API_TOKEN")); v != "" {
		c.Paths.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("INKWELL_S3_BUCKET")); v != "" {
		c.Storage.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("INKWELL_S3_ACCESS_KEY")); v != "" {
		c.Storage.AccessKey = v
	}
	if v := strings.TrimSpace(os.Getenv("INKWELL_S3_SECRET_KEY")); v != "" {
		c.Storage.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("INKWELL_ENGINE_API_KEY")); v != "" {
		c.Extraction.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("INKWELL_NTFY_TOPIC")); v != "" {
		c.Notifications.NtfyTopic = v
	}
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dbPath := range []string{c.Database.RecordsPath, c.Database.QueuePath} {
		dir := filepath.Dir(dbPath)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
