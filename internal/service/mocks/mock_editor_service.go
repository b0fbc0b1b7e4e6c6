package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"seepage/internal/model"
	"seepage/internal/service"
)

type MockEditorService struct {
	mock.Mock
}

var _ service.EditorService = (*MockEditorService)(nil)

func (m *MockEditorService) Register(ctx context.Context, body map[string]any) (*model.EditorDTO, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EditorDTO), args.Error(1)
}

func (m *MockEditorService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockEditorService) Refresh(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}
