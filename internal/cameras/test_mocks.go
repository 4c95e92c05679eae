package cameras

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/technosupport/cctv-console/internal/data"
)

// MockAPI
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListCameras(ctx context.Context) ([]data.Camera, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.Camera), args.Error(1)
}

func (m *MockAPI) GetCamera(ctx context.Context, id int64) (*data.Camera, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Camera), args.Error(1)
}

func (m *MockAPI) CreateCamera(ctx context.Context, fields data.Fields) (*data.Camera, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Camera), args.Error(1)
}

func (m *MockAPI) UpdateCamera(ctx context.Context, id int64, fields data.Fields) (*data.Camera, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Camera), args.Error(1)
}

func (m *MockAPI) DeleteCamera(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) StartStream(ctx context.Context, id int64) (*data.StreamStatus, error) {
	return m.stream(m.Called(ctx, id))
}

func (m *MockAPI) StopStream(ctx context.Context, id int64) (*data.StreamStatus, error) {
	return m.stream(m.Called(ctx, id))
}

func (m *MockAPI) RestartStream(ctx context.Context, id int64) (*data.StreamStatus, error) {
	return m.stream(m.Called(ctx, id))
}

func (m *MockAPI) stream(args mock.Arguments) (*data.StreamStatus, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.StreamStatus), args.Error(1)
}
