package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"inkwell/internal/config"
	"inkwell/internal/services/ocrengine"
	"inkwell/internal/services/textengine"
)

const engineCheckTimeout = 10 * time.Second

// CheckFastEngine verifies the synchronous text engine answers its health
// probe. A single attempt with a short timeout; the worker retries on its own.
func CheckFastEngine(ctx context.Context, cfg config.Extraction) Result {
	const name = "Fast text engine"

	if strings.TrimSpace(cfg.FastEndpoint) == "" {
		return Result{Name: name, Detail: "endpoint not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, engineCheckTimeout)
	defer cancel()

	client := textengine.NewClient(cfg.FastEndpoint, cfg.APIKey,
		textengine.WithTimeout(engineCheckTimeout))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeEngineError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckBatchEngine verifies the asynchronous OCR engine answers its health probe.
func CheckBatchEngine(ctx context.Context, cfg config.Extraction) Result {
	const name = "Batch OCR engine"

	if strings.TrimSpace(cfg.BatchEndpoint) == "" {
		return Result{Name: name, Detail: "endpoint not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, engineCheckTimeout)
	defer cancel()

	client := ocrengine.NewClient(cfg.BatchEndpoint, cfg.APIKey,
		ocrengine.WithTimeout(engineCheckTimeout))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeEngineError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckObjectStorage validates the storage configuration without touching the
// network. Credential problems surface at first use; a missing bucket is a
// configuration error worth failing early on.
func CheckObjectStorage(cfg config.Storage) Result {
	const name = "Object storage"

	if strings.TrimSpace(cfg.Bucket) == "" {
		return Result{Name: name, Detail: "bucket not configured"}
	}
	detail := fmt.Sprintf("bucket %s", cfg.Bucket)
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		detail += fmt.Sprintf(" via %s", endpoint)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeEngineError produces a human-readable summary for engine health
// check failures.
func summarizeEngineError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (engine unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (engine unreachable)"
	}
	return err.Error()
}
