package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"seepage/internal/repository/repotest"
	"seepage/internal/storage"
)

type memContentRepo = repotest.ContentRepo

func newMemContentRepo() *memContentRepo { return repotest.NewContentRepo() }

// faultyBlobs wraps the memory store with injectable failures.
type faultyBlobs struct {
	*storage.Memory
	putErr    func(hint string) error
	failKeys  map[string]bool
	deleteErr error
}

func newFaultyBlobs() *faultyBlobs {
	return &faultyBlobs{Memory: storage.NewMemory(), failKeys: map[string]bool{}}
}

func (b *faultyBlobs) Put(ctx context.Context, r io.Reader, hint string, opt storage.PutOptions) (storage.ObjectInfo, error) {
	if b.putErr != nil {
		if err := b.putErr(hint); err != nil {
			return storage.ObjectInfo{}, err
		}
	}
	return b.Memory.Put(ctx, r, hint, opt)
}

func (b *faultyBlobs) Delete(ctx context.Context, key string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if b.failKeys[key] {
		return errors.New("delete refused for " + key)
	}
	return b.Memory.Delete(ctx, key)
}

func (b *faultyBlobs) DeleteMany(ctx context.Context, keys []string) (int, error) {
	failed := map[string]error{}
	n := 0
	for _, k := range keys {
		if err := b.Delete(ctx, k); err != nil {
			failed[k] = err
			continue
		}
		n++
	}
	if len(failed) > 0 {
		return n, &storage.DeleteError{Failed: failed}
	}
	return n, nil
}

func uploadOf(name, body string) FileInput {
	return FileInput{Upload: &Upload{
		Filename: name,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}}
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}
