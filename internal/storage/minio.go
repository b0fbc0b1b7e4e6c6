package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"seepage/internal/config"
)

// minioStore keeps blobs in a MinIO (or other S3-compatible) bucket.
type minioStore struct {
	client *minio.Client
	bucket string
}

var _ BlobStore = (*minioStore)(nil)

// NewMinIO connects to MinIO and creates the bucket when it is missing.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (BlobStore, error) {
	var missing []string
	for name, v := range map[string]string{
		"MINIO_ENDPOINT":   cfg.Endpoint,
		"MINIO_ACCESS_KEY": cfg.AccessKey,
		"MINIO_SECRET_KEY": cfg.SecretKey,
		"MINIO_BUCKET":     cfg.Bucket,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("minio store: %s required", strings.Join(missing, ", "))
	}

	tr, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("create minio transport: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: otelhttp.NewTransport(tr),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch exists, err := cli.BucketExists(ctx, cfg.Bucket); {
	case err != nil:
		return nil, fmt.Errorf("minio bucket %q: %w", cfg.Bucket, err)
	case !exists:
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &minioStore{client: cli, bucket: cfg.Bucket}, nil
}

// Put uploads a blob in a single streaming PUT. A failed upload leaves no object.
func (m *minioStore) Put(ctx context.Context, r io.Reader, hint string, opt PutOptions) (ObjectInfo, error) {
	key, name, meta, err := newObject(hint, opt)
	if err != nil {
		return ObjectInfo{}, err
	}
	size := opt.Size
	if size == 0 {
		size = -1
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: wireMetadata(meta),
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	modified := info.LastModified
	if modified.IsZero() {
		modified = time.Now().UTC()
	}
	return ObjectInfo{
		Key:          key,
		Name:         name,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  opt.ContentType,
		LastModified: modified,
		Metadata:     meta,
	}, nil
}

// Get opens a blob as a ReadCloser along with its info.
func (m *minioStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapMinIOError(err)
	}
	// Stat populates info without reading the body.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, mapMinIOError(err)
	}
	return obj, minioObjectInfo(st), nil
}

// Delete removes a blob by key. RemoveObject does not fail on missing keys.
func (m *minioStore) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// DeleteMany removes every key, collecting per-key failures.
func (m *minioStore) DeleteMany(ctx context.Context, keys []string) (int, error) {
	return deleteEach(ctx, keys, m.Delete)
}

// List walks the bucket and returns blobs matching filter.
func (m *minioStore) List(ctx context.Context, filter Filter) ([]ObjectInfo, error) {
	out := make([]ObjectInfo, 0)
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		info := minioObjectInfo(obj)
		if filter.Match(info) {
			out = append(out, info)
		}
	}
	return out, nil
}

func minioObjectInfo(st minio.ObjectInfo) ObjectInfo {
	meta := normalizeMetadata(st.UserMetadata)
	return ObjectInfo{
		Key:          st.Key,
		Name:         meta[MetaStoredName],
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     meta,
	}
}

func mapMinIOError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
