package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrUnavailable wraps the error of a blob store that failed to open.
var ErrUnavailable = errors.New("blob store unavailable")

// Deferred is a BlobStore whose backend becomes available later. Every call
// blocks until the backend is resolved or ctx is done.
type Deferred struct {
	ready chan struct{}
	once  sync.Once
	store BlobStore
	err   error
}

var _ BlobStore = (*Deferred)(nil)

// NewDeferred returns an unresolved Deferred.
func NewDeferred() *Deferred {
	return &Deferred{ready: make(chan struct{})}
}

// Resolved returns a Deferred that is already ready with store.
func Resolved(store BlobStore) *Deferred {
	d := NewDeferred()
	d.Resolve(store, nil)
	return d
}

// Defer opens the backend in a goroutine and resolves the returned Deferred
// with its outcome.
func Defer(ctx context.Context, open func(context.Context) (BlobStore, error)) *Deferred {
	d := NewDeferred()
	go func() {
		d.Resolve(open(ctx))
	}()
	return d
}

// Resolve sets the backend or the open error. Only the first call has effect.
func (d *Deferred) Resolve(store BlobStore, err error) {
	d.once.Do(func() {
		if err == nil && store == nil {
			err = errors.New("nil blob store")
		}
		d.store, d.err = store, err
		close(d.ready)
	})
}

// Ready is closed once the backend is resolved, successfully or not.
func (d *Deferred) Ready() <-chan struct{} {
	return d.ready
}

// Err returns the open error after Ready is closed, and nil before.
func (d *Deferred) Err() error {
	select {
	case <-d.ready:
		return d.err
	default:
		return nil
	}
}

// IsReady reports whether the backend resolved successfully.
func (d *Deferred) IsReady() bool {
	select {
	case <-d.ready:
		return d.err == nil
	default:
		return false
	}
}

func (d *Deferred) wait(ctx context.Context) (BlobStore, error) {
	select {
	case <-d.ready:
		if d.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, d.err)
		}
		return d.store, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Deferred) Put(ctx context.Context, r io.Reader, hint string, opt PutOptions) (ObjectInfo, error) {
	s, err := d.wait(ctx)
	if err != nil {
		return ObjectInfo{}, err
	}
	return s.Put(ctx, r, hint, opt)
}

func (d *Deferred) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	s, err := d.wait(ctx)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return s.Get(ctx, key)
}

func (d *Deferred) Delete(ctx context.Context, key string) error {
	s, err := d.wait(ctx)
	if err != nil {
		return err
	}
	return s.Delete(ctx, key)
}

func (d *Deferred) DeleteMany(ctx context.Context, keys []string) (int, error) {
	s, err := d.wait(ctx)
	if err != nil {
		return 0, err
	}
	return s.DeleteMany(ctx, keys)
}

func (d *Deferred) List(ctx context.Context, filter Filter) ([]ObjectInfo, error) {
	s, err := d.wait(ctx)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, filter)
}
