package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"seepage/internal/model"
	"seepage/internal/service"
	"seepage/internal/storage"
)

type MockContentService struct {
	mock.Mock
}

var _ service.ContentService = (*MockContentService)(nil)

func (m *MockContentService) Create(ctx context.Context, in service.CreateContentInput) (*model.Content, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentService) Get(ctx context.Context, id string) (*model.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentService) List(ctx context.Context) ([]model.Content, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Content), args.Error(1)
}

func (m *MockContentService) UpdateFields(ctx context.Context, id string, patch model.ContentPatch) (*model.Content, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentService) PatchFiles(ctx context.Context, id string, in service.PatchFilesInput) (*model.Content, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockContentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContentService) OpenFile(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	info, _ := args.Get(1).(storage.ObjectInfo)
	if args.Get(0) == nil {
		return nil, info, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), info, args.Error(2)
}
