package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"seepage/internal/config"
)

// s3API is the subset of *s3.Client used by s3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// s3Store implements BlobStore on AWS S3. Keys are stored under prefix.
type s3Store struct {
	client s3API
	bucket string
	prefix string
}

var _ BlobStore = (*s3Store)(nil)

// NewS3 creates an S3-backed blob store using the default AWS credential chain.
func NewS3(ctx context.Context, cfg config.S3Config) (BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client s3API, bucket, prefix string) *s3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &s3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *s3Store) objectKey(key string) string {
	return s.prefix + key
}

// Put uploads a blob in one PutObject call. Streams that cannot be rewound
// are sent with an unsigned payload.
func (s *s3Store) Put(ctx context.Context, r io.Reader, hint string, opt PutOptions) (ObjectInfo, error) {
	key, name, meta, err := newObject(hint, opt)
	if err != nil {
		return ObjectInfo{}, err
	}
	in := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		Body:     r,
		Metadata: wireMetadata(meta),
	}
	if opt.ContentType != "" {
		in.ContentType = aws.String(opt.ContentType)
	}
	if opt.Size > 0 {
		in.ContentLength = aws.Int64(opt.Size)
	}

	var optFns []func(*s3.Options)
	if _, ok := r.(io.Seeker); !ok {
		optFns = append(optFns, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	}
	out, err := s.client.PutObject(ctx, in, optFns...)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put S3 object s3://%s/%s: %w", s.bucket, s.objectKey(key), err)
	}
	return ObjectInfo{
		Key:          key,
		Name:         name,
		Size:         opt.Size,
		ETag:         aws.ToString(out.ETag),
		ContentType:  opt.ContentType,
		LastModified: time.Now().UTC(),
		Metadata:     meta,
	}, nil
}

// Get opens a blob for streaming.
func (s *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, ObjectInfo{}, mapS3Error(err)
	}
	meta := normalizeMetadata(out.Metadata)
	return out.Body, ObjectInfo{
		Key:          key,
		Name:         meta[MetaStoredName],
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     meta,
	}, nil
}

// Delete removes a blob. S3 DeleteObject succeeds for missing keys.
func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}

// DeleteMany removes every key, collecting per-key failures.
func (s *s3Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	return deleteEach(ctx, keys, s.Delete)
}

// List pages through the prefix. Metadata is fetched with HeadObject only
// when the filter needs it.
func (s *s3Store) List(ctx context.Context, filter Filter) ([]ObjectInfo, error) {
	out := make([]ObjectInfo, 0)
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list S3 objects s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{
				Key:          strings.TrimPrefix(aws.ToString(obj.Key), s.prefix),
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
				Metadata:     map[string]string{},
			}
			if filter.ContentID != "" {
				head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
					Bucket: aws.String(s.bucket),
					Key:    obj.Key,
				})
				if err != nil {
					return nil, mapS3Error(err)
				}
				info.Metadata = normalizeMetadata(head.Metadata)
				info.Name = info.Metadata[MetaStoredName]
				info.ContentType = aws.ToString(head.ContentType)
			}
			if filter.Match(info) {
				out = append(out, info)
			}
		}
	}
	return out, nil
}

func mapS3Error(err error) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		apiErr   smithy.APIError
	)
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	// S3-compatible stores may answer with an untyped error code.
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}
