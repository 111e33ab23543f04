package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"inkwell/internal/services"
)

// Memory is a thread-safe in-memory ObjectStore for tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemory returns an empty in-memory object store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func (m *Memory) Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return services.Wrap(services.ErrTransport, "storage", "put", "read payload", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memoryKey(bucket, key)] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (m *Memory) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "storage", "get",
			fmt.Sprintf("object %s does not exist", memoryKey(bucket, key)), nil)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Head(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	m.mu.RLock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	m.mu.RUnlock()
	if !ok {
		return ObjectInfo{}, services.Wrap(services.ErrNotFound, "storage", "head",
			fmt.Sprintf("object %s does not exist", memoryKey(bucket, key)), nil)
	}
	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

// Len reports how many objects the store holds.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func memoryKey(bucket, key string) string {
	return bucket + "/" + key
}
