package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateRecycle(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.RecordsPath == "" {
		return errors.New("database.records_path must be set")
	}
	if c.Database.QueuePath == "" {
		return errors.New("database.queue_path must be set")
	}
	if c.Database.RecordsPath == c.Database.QueuePath {
		return errors.New("database.records_path and database.queue_path must be different files")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Bucket == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/inkwell/config.toml"
		}
		return fmt.Errorf("storage.bucket is required. Set INKWELL_S3_BUCKET env var or edit %s (create with 'inkwell config init')", defaultPath)
	}
	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return errors.New("storage.access_key and storage.secret_key must be set together")
	}
	return nil
}

func (c *Config) validateIntake() error {
	if c.Intake.MaxSizeBytes <= 0 {
		return errors.New("intake.max_size_bytes must be positive")
	}
	if c.Intake.HeavySizeBytes <= 0 {
		return errors.New("intake.heavy_size_bytes must be positive")
	}
	if c.Intake.HeavySizeBytes > c.Intake.MaxSizeBytes {
		return errors.New("intake.heavy_size_bytes must not exceed intake.max_size_bytes")
	}
	if c.Intake.HeavyPageCount <= 0 {
		return errors.New("intake.heavy_page_count must be positive")
	}
	if len(c.Intake.AllowedTypes) == 0 {
		return errors.New("intake.allowed_types must include at least one content type")
	}
	switch c.Intake.ForceTier {
	case "", "fast", "heavy":
	default:
		return errors.New("intake.force_tier must be \"fast\", \"heavy\", or empty")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	return ensurePositiveMap(map[string]int{
		"dispatch.max_attempts":        c.Dispatch.MaxAttempts,
		"dispatch.lease_seconds":       c.Dispatch.LeaseSeconds,
		"dispatch.retry_delay_seconds": c.Dispatch.RetryDelaySeconds,
		"dispatch.enqueue_retries":     c.Dispatch.EnqueueRetries,
	})
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"workers.queue_poll_interval":  c.Workers.QueuePollInterval,
		"workers.error_retry_interval": c.Workers.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workers.HeartbeatInterval <= 0 {
		return errors.New("workers.heartbeat_interval must be positive")
	}
	if c.Workers.HeartbeatTimeout <= 0 {
		return errors.New("workers.heartbeat_timeout must be positive")
	}
	if c.Workers.HeartbeatTimeout <= c.Workers.HeartbeatInterval {
		return errors.New("workers.heartbeat_timeout must be greater than workers.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if err := ensurePositiveMap(map[string]int{
		"reconcile.sweep_interval_minutes": c.Reconcile.SweepIntervalMinutes,
		"reconcile.fast_sla_minutes":       c.Reconcile.FastSLAMinutes,
		"reconcile.heavy_sla_minutes":      c.Reconcile.HeavySLAMinutes,
	}); err != nil {
		return err
	}
	if c.Reconcile.MaxRetries < 0 {
		return errors.New("reconcile.max_retries must be >= 0")
	}
	return nil
}

func (c *Config) validateRecycle() error {
	return ensurePositiveMap(map[string]int{
		"recycle.retention_days":         c.Recycle.RetentionDays,
		"recycle.purge_interval_minutes": c.Recycle.PurgeIntervalMinutes,
	})
}

func (c *Config) validateExtraction() error {
	if strings.TrimSpace(c.Extraction.FastEndpoint) == "" {
		return errors.New("extraction.fast_endpoint must be set")
	}
	if strings.TrimSpace(c.Extraction.BatchEndpoint) == "" {
		return errors.New("extraction.batch_endpoint must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"extraction.request_timeout": c.Extraction.RequestTimeout,
		"extraction.poll_interval":   c.Extraction.PollInterval,
	}); err != nil {
		return err
	}
	if len(c.Extraction.Languages) == 0 {
		return errors.New("extraction.languages must include at least one language")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be \"console\" or \"json\"")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	if c.Logging.RetentionDays <= 0 {
		return errors.New("logging.retention_days must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
