package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"seepage/internal/model"
)

type MockEditorRepository struct {
	mock.Mock
}

func (m *MockEditorRepository) Create(ctx context.Context, e *model.Editor) (*model.Editor, error) {
	args := m.Called(ctx, e)
	if f, ok := args.Get(0).(func(context.Context, *model.Editor) *model.Editor); ok {
		return f(ctx, e), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Editor), args.Error(1)
}

func (m *MockEditorRepository) FindByEmail(ctx context.Context, email string) (*model.Editor, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Editor), args.Error(1)
}

func (m *MockEditorRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
