package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"seepage/internal/model"
)

type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Create(ctx context.Context, c *model.Content) (*model.Content, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentRepository) FindByID(ctx context.Context, id string) (*model.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentRepository) List(ctx context.Context) ([]model.Content, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Content), args.Error(1)
}

func (m *MockContentRepository) Update(ctx context.Context, id string, patch model.ContentPatch) (*model.Content, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentRepository) AppendFile(ctx context.Context, id string, ref model.FileRef) (*model.Content, error) {
	args := m.Called(ctx, id, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentRepository) RemoveFiles(ctx context.Context, id string, refIDs []string) (*model.Content, []model.FileRef, error) {
	args := m.Called(ctx, id, refIDs)
	var (
		c       *model.Content
		removed []model.FileRef
	)
	if v := args.Get(0); v != nil {
		c = v.(*model.Content)
	}
	if v := args.Get(1); v != nil {
		removed = v.([]model.FileRef)
	}
	return c, removed, args.Error(2)
}

func (m *MockContentRepository) Delete(ctx context.Context, id string) (*model.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentRepository) FindFileByName(ctx context.Context, name string) (*model.FileRef, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRef), args.Error(1)
}

func (m *MockContentRepository) ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}
