package usecase

import (
	"context"
	"testing"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/internal/pagination"
	"sheetview-go-server/internal/security"
	"sheetview-go-server/internal/session"
	"sheetview-go-server/internal/viewchannel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ========== ViewerUseCase 单元测试 ==========
// 使用真实的 Registry，只 Mock 数据提供者

var bookSheets = []entity.SheetDescriptor{{Name: "Sheet1", Columns: []string{"A", "B"}}}

func newTestUseCase(t *testing.T, ds *MockDataSource) *ViewerUseCase {
	t.Helper()
	registry := session.NewRegistry(ds, security.NewGenerator(nil, "/assets/"), nil, session.Config{
		Pagination: pagination.Config{PageSize: 2},
		IdleGrace:  time.Minute,
	})
	t.Cleanup(registry.CloseAll)
	return NewViewerUseCase(registry)
}

func TestViewerUseCase_ListSheets(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("ListSheets", mock.Anything, "/data/book.xlsx").Return(bookSheets, nil)
	uc := newTestUseCase(t, ds)

	got, err := uc.ListSheets(context.Background(), "/data/book.xlsx")
	require.NoError(t, err)
	assert.Equal(t, bookSheets, got)

	_, err = uc.ListSheets(context.Background(), "")
	assert.Equal(t, domainErrors.KindSelectionCancelled, domainErrors.KindOf(err))
	ds.AssertNumberOfCalls(t, "ListSheets", 1)
}

// TestViewerUseCase_EndToEnd Sheet1 [A,B]，每页 2 行，第 1 页两行，第 2 页为空
func TestViewerUseCase_EndToEnd(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("ListSheets", mock.Anything, "/data/book.xlsx").Return(bookSheets, nil)
	ds.On("ReadPage", mock.Anything, mock.MatchedBy(func(req entity.PageRequest) bool { return req.PageNumber == 1 })).
		Return(entity.PageResult{Rows: []entity.Row{
			{entity.StringCell("x"), entity.NumberCell(1)},
			{entity.StringCell("y"), entity.NumberCell(2)},
		}}, nil)
	ds.On("ReadPage", mock.Anything, mock.MatchedBy(func(req entity.PageRequest) bool { return req.PageNumber == 2 })).
		Return(entity.PageResult{}, nil)

	uc := newTestUseCase(t, ds)

	view, err := uc.OpenView(context.Background(), "/data/book.xlsx", "Sheet1", "")
	require.NoError(t, err)
	assert.Equal(t, "/view/"+view.SessionID, view.ViewURL)
	assert.Equal(t, 2, view.PageSize)

	require.Eventually(t, func() bool {
		info, err := uc.SessionInfo(context.Background(), view.SessionID)
		return err == nil && info.State == entity.StateReady
	}, 2*time.Second, 5*time.Millisecond)

	s, err := uc.registry.Get(view.SessionID)
	require.NoError(t, err)

	// 按连接侧的方式把帧交给渲染面
	first := nextFrame(t, s)
	require.Equal(t, viewchannel.TypePage, first.Type)
	pagePayload, err := viewchannel.DecodePage(first)
	require.NoError(t, err)
	applied, err := s.Surface().ApplyPage(pagePayload.Page, pagePayload.RequestSeq, pagePayload.Rows)
	require.NoError(t, err)
	assert.True(t, applied)

	s.Channel().SendToController(nextCommand())

	eod := nextFrame(t, s)
	require.Equal(t, viewchannel.TypeEndOfData, eod.Type)
	s.Surface().Observe(viewchannel.RequestSeqOf(eod))

	info, err := uc.SessionInfo(context.Background(), view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateEndOfData, info.State)
	assert.Equal(t, 1, info.CurrentPage)

	// 渲染面仍显示第 1 页的两行
	drawn := s.Surface().Snapshot()
	assert.Equal(t, 1, drawn.Page)
	require.Len(t, drawn.Rows, 2)
	assert.Equal(t, []string{"x", "1"}, drawn.Rows[0])
	assert.Equal(t, []string{"y", "2"}, drawn.Rows[1])

	require.NoError(t, uc.CloseView(view.SessionID))
	_, err = uc.SessionInfo(context.Background(), view.SessionID)
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestViewerUseCase_ViewPage(t *testing.T) {
	ds := new(MockDataSource)
	ds.On("ListSheets", mock.Anything, mock.Anything).Return([]entity.SheetDescriptor{
		{Name: "Sheet1", Columns: []string{"<b>A</b>", "B"}},
	}, nil)
	ds.On("ReadPage", mock.Anything, mock.Anything).Return(entity.PageResult{}, nil)

	uc := newTestUseCase(t, ds)
	view, err := uc.OpenView(context.Background(), "/data/book.xlsx", "Sheet1", "")
	require.NoError(t, err)

	page, err := uc.ViewPage(context.Background(), view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1 · book.xlsx", page.Title)
	assert.Len(t, page.Token, security.TokenLength)
	assert.Equal(t, "/assets/", page.AssetPath)
	assert.Contains(t, string(page.Header), "&lt;b&gt;A&lt;/b&gt;")

	_, err = uc.ViewPage(context.Background(), "missing")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestViewerUseCase_HistoryDisabled(t *testing.T) {
	uc := newTestUseCase(t, new(MockDataSource))
	_, err := uc.History(20)
	assert.ErrorIs(t, err, domainErrors.ErrHistoryDisabled)
}

func nextFrame(t *testing.T, s *session.Session) viewchannel.Message {
	t.Helper()
	select {
	case msg := <-s.Channel().Outbound():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a view message")
		return viewchannel.Message{}
	}
}

func nextCommand() viewchannel.Message {
	return viewchannel.NewCommand(viewchannel.TypeNext)
}
