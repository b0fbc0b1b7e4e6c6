package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	repoMocks "seepage/internal/repository/mocks"
	"seepage/internal/storage"
	storeMocks "seepage/internal/storage/mocks"
)

func TestOrphanSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	repo := newMemContentRepo()
	blobs := newFaultyBlobs()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	blobs.SetClock(func() time.Time { return old })

	svc := newTestContentService(repo, blobs)
	kept, err := svc.Create(ctx, CreateContentInput{Fields: validFields, Files: []FileInput{uploadOf("a.png", "a")}})
	require.NoError(t, err)

	orphan, err := blobs.Put(ctx, strings.NewReader("lost"), "lost.png", storage.PutOptions{})
	require.NoError(t, err)

	blobs.SetClock(func() time.Time { return old.Add(2 * time.Hour) })
	fresh, err := blobs.Put(ctx, strings.NewReader("in flight"), "new.png", storage.PutOptions{})
	require.NoError(t, err)

	var logs bytes.Buffer
	sw := NewOrphanSweeper(repo, blobs, time.Hour, zerolog.New(&logs), nil)
	sw.now = func() time.Time { return old.Add(2 * time.Hour) }

	res, err := sw.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 3, Orphans: 1, Deleted: 1}, res)
	_, _, err = blobs.Get(ctx, orphan.Key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, _, err = blobs.Get(ctx, fresh.Key)
	assert.NoError(t, err)
	_, _, err = blobs.Get(ctx, kept.Files[0].FileID)
	assert.NoError(t, err)
	assert.Contains(t, logs.String(), `"event":"blob_sweep"`)
}

func TestOrphanSweeper_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("list failure", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockContentRepository)
		mStore.On("List", ctx, storage.Filter{}).Return(nil, errors.New("no bucket"))

		_, err := NewOrphanSweeper(mRepo, mStore, time.Hour, zerolog.Nop(), nil).Sweep(ctx)

		assert.ErrorIs(t, err, ErrStore)
		mRepo.AssertNotCalled(t, "ReferencedBlobIDs", mock.Anything)
	})

	t.Run("partial delete", func(t *testing.T) {
		mStore := new(storeMocks.MockBlobStore)
		mRepo := new(repoMocks.MockContentRepository)
		mStore.On("List", ctx, storage.Filter{}).Return([]storage.ObjectInfo{{Key: "a"}, {Key: "b"}}, nil)
		mRepo.On("ReferencedBlobIDs", ctx).Return(map[string]struct{}{}, nil)
		mStore.On("DeleteMany", ctx, []string{"a", "b"}).
			Return(1, &storage.DeleteError{Failed: map[string]error{"b": errors.New("denied")}})

		res, err := NewOrphanSweeper(mRepo, mStore, 0, zerolog.Nop(), nil).Sweep(ctx)

		assert.ErrorIs(t, err, ErrStore)
		assert.Equal(t, 2, res.Orphans)
		assert.Equal(t, 1, res.Deleted)
		mStore.AssertExpectations(t)
	})
}
