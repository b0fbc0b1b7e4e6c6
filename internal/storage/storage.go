// Package storage contains the blob store abstraction and its drivers.
// Implementations stream bytes and never touch local disk.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Metadata keys attached to every blob.
const (
	MetaContentID        = "content-id"
	MetaStoredName       = "stored-name"
	MetaOriginalFilename = "original-filename"
)

// deleteConcurrency bounds parallel deletes in DeleteMany.
const deleteConcurrency = 8

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// PutOptions define optional parameters for uploading blobs.
// Size should be the exact number of bytes if known, or -1.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored blob. Key is the blob id; Name is the
// generated stored file name.
type ObjectInfo struct {
	Key          string
	Name         string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// ContentID returns the content-id metadata tag, if any.
func (o ObjectInfo) ContentID() string {
	return o.Metadata[MetaContentID]
}

// Filter selects blobs by metadata. The zero value matches everything.
type Filter struct {
	ContentID string
}

// Match reports whether info satisfies the filter.
func (f Filter) Match(info ObjectInfo) bool {
	return f.ContentID == "" || info.ContentID() == f.ContentID
}

// DeleteError reports the keys DeleteMany could not remove.
type DeleteError struct {
	Failed map[string]error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete %d blob(s): %s", len(e.Failed), strings.Join(e.Keys(), ", "))
}

// Keys returns the failed keys in sorted order.
func (e *DeleteError) Keys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BlobStore is the blob storage contract used by the content lifecycle.
// All methods are safe for concurrent use.
type BlobStore interface {
	// Put streams r into a new blob. hint is the original or deterministic file
	// name; only its extension survives into the stored name.
	Put(ctx context.Context, r io.Reader, hint string, opt PutOptions) (ObjectInfo, error)
	// Get opens a blob for streaming. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes a blob. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteMany removes every key and returns how many were removed.
	// Partial failure is reported as *DeleteError.
	DeleteMany(ctx context.Context, keys []string) (int, error)
	// List returns the blobs matching filter.
	List(ctx context.Context, filter Filter) ([]ObjectInfo, error)
}

// GenerateName returns 32 random hex characters followed by the extension of hint.
func GenerateName(hint string) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate blob name: %w", err)
	}
	return hex.EncodeToString(b[:]) + filepath.Ext(hint), nil
}

// newObject allocates a key and stored name and merges the standard metadata tags.
func newObject(hint string, opt PutOptions) (key, name string, meta map[string]string, err error) {
	name, err = GenerateName(hint)
	if err != nil {
		return "", "", nil, err
	}
	meta = make(map[string]string, len(opt.Metadata)+2)
	for k, v := range opt.Metadata {
		meta[strings.ToLower(k)] = v
	}
	meta[MetaStoredName] = name
	if _, ok := meta[MetaOriginalFilename]; !ok && hint != "" {
		meta[MetaOriginalFilename] = hint
	}
	return uuid.NewString(), name, meta, nil
}

// wireMetadata prepares metadata for object store headers. Non-ASCII values
// (uploaded file names) are sent as RFC 2047 words; ASCII passes unchanged.
func wireMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = mime.QEncoding.Encode("utf-8", v)
	}
	return out
}

// normalizeMetadata lower-cases keys, strips the S3 user metadata prefix and
// decodes values written by wireMetadata.
func normalizeMetadata(in map[string]string) map[string]string {
	var dec mime.WordDecoder
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if decoded, err := dec.DecodeHeader(v); err == nil {
			v = decoded
		}
		out[k] = v
	}
	return out
}

// deleteEach runs del for every distinct key with bounded concurrency and
// collects the failures.
func deleteEach(ctx context.Context, keys []string, del func(context.Context, string) error) (int, error) {
	seen := make(map[string]struct{}, len(keys))
	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		g      errgroup.Group
	)
	g.SetLimit(deleteConcurrency)
	for _, key := range keys {
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		g.Go(func() error {
			if err := del(ctx, key); err != nil {
				mu.Lock()
				failed[key] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return len(seen) - len(failed), &DeleteError{Failed: failed}
	}
	return len(seen), nil
}
