package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"sync"
	"time"
)

type memoryObject struct {
	info ObjectInfo
	data []byte
}

// Memory is an in-process BlobStore for tests and local development.
// A blob becomes visible only after its reader is fully consumed.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

var _ BlobStore = (*Memory)(nil)

// NewMemory creates an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Put reads r fully and then publishes the blob.
func (m *Memory) Put(ctx context.Context, r io.Reader, hint string, opt PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("read blob: %w", err)
	}
	key, name, meta, err := newObject(hint, opt)
	if err != nil {
		return ObjectInfo{}, err
	}
	sum := md5.Sum(data)
	info := ObjectInfo{
		Key:          key,
		Name:         name,
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  opt.ContentType,
		Metadata:     meta,
	}

	m.mu.Lock()
	info.LastModified = m.now()
	m.objects[key] = memoryObject{info: info, data: data}
	m.mu.Unlock()
	return copyInfo(info), nil
}

// Get returns a reader over the stored bytes.
func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), copyInfo(obj.info), nil
}

// Delete removes a blob; missing keys are ignored.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// DeleteMany removes every key.
func (m *Memory) DeleteMany(ctx context.Context, keys []string) (int, error) {
	return deleteEach(ctx, keys, m.Delete)
}

// List returns the blobs matching filter.
func (m *Memory) List(ctx context.Context, filter Filter) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ObjectInfo, 0, len(m.objects))
	for _, obj := range m.objects {
		if filter.Match(obj.info) {
			out = append(out, copyInfo(obj.info))
		}
	}
	return out, nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// SetClock overrides the time source used for LastModified.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func copyInfo(info ObjectInfo) ObjectInfo {
	info.Metadata = maps.Clone(info.Metadata)
	return info
}
