package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// KeyValueRepository is a mock for repository.KeyValueRepository.
type KeyValueRepository struct {
	mock.Mock
}

func (m *KeyValueRepository) Load(ctx context.Context, keys []string) (map[string]string, int64, error) {
	args := m.Called(ctx, keys)
	if values, ok := args.Get(0).(map[string]string); ok {
		return values, args.Get(1).(int64), args.Error(2)
	}
	return nil, args.Get(1).(int64), args.Error(2)
}

func (m *KeyValueRepository) Replace(ctx context.Context, values map[string]string, removed []string) (int64, error) {
	args := m.Called(ctx, values, removed)
	return args.Get(0).(int64), args.Error(1)
}

func (m *KeyValueRepository) Revision(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
