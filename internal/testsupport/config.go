package testsupport

import (
	"path/filepath"
	"testing"

	"inkwell/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Database.RecordsPath = filepath.Join(base, "data", "records.db")
	cfgVal.Database.QueuePath = filepath.Join(base, "data", "queue.db")
	cfgVal.Storage.Bucket = "test-bucket"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithForceTier pins every intake routing decision to one tier.
func WithForceTier(tier string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Intake.ForceTier = tier
	}
}

// WithHeavyThresholds overrides the size and page thresholds that route
// documents to the heavy tier.
func WithHeavyThresholds(sizeBytes int64, pageCount int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Intake.HeavySizeBytes = sizeBytes
		b.cfg.Intake.HeavyPageCount = pageCount
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
