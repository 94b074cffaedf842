package session

import (
	"context"

	"sheetview-go-server/domain/entity"

	"github.com/stretchr/testify/mock"
)

// ========== MockDataSource ==========

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) ListSheets(ctx context.Context, filePath string) ([]entity.SheetDescriptor, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SheetDescriptor), args.Error(1)
}

func (m *MockDataSource) ReadPage(ctx context.Context, req entity.PageRequest) (entity.PageResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(entity.PageResult), args.Error(1)
}

// ========== MockViewRecordRepository ==========

type MockViewRecordRepository struct {
	mock.Mock
}

func (m *MockViewRecordRepository) Create(record *entity.ViewRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockViewRecordRepository) MarkClosed(sessionID string, pagesLoaded int) error {
	args := m.Called(sessionID, pagesLoaded)
	return args.Error(0)
}

func (m *MockViewRecordRepository) ListRecent(limit int) ([]entity.ViewRecord, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ViewRecord), args.Error(1)
}
