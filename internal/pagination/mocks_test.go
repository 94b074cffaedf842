package pagination

import (
	"context"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"

	"github.com/stretchr/testify/mock"
)

// ========== MockDataSource ==========
// 实现 provider.DataSource 接口，用于控制器单元测试

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

// ========== MockHost ==========

type MockHost struct {
	mock.Mock
}

func (m *MockHost) ReportError(sessionID string, kind domainErrors.Kind, reason string) {
	m.Called(sessionID, kind, reason)
}
