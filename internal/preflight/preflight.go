package preflight

import (
	"context"

	"inkwell/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Engine checks only run when the corresponding endpoint is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckObjectStorage(cfg.Storage))

	if cfg.Extraction.FastEndpoint != "" {
		results = append(results, CheckFastEngine(ctx, cfg.Extraction))
	}
	if cfg.Extraction.BatchEndpoint != "" {
		results = append(results, CheckBatchEngine(ctx, cfg.Extraction))
	}

	return results
}
