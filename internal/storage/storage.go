package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the narrow surface the rest of the system uses to reach
// uploaded documents and archived results. Buckets are explicit because
// records carry their own source location.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)
}

// ObjectInfo describes a stored object without its payload.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
}

// UploadKey builds a date-partitioned object key for a fresh upload. The
// original extension is kept so downstream tooling can still sniff the type.
func UploadKey(filename string) string {
	now := time.Now().UTC()
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("uploads/%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}

// ResultKey builds the object key under which a document's result archive is
// stored. The prefix comes from configuration and is already slash-terminated.
func ResultKey(prefix, documentID string) string {
	return prefix + documentID + ".json"
}

// ReadAll drains and closes a reader returned by Get.
func ReadAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}
