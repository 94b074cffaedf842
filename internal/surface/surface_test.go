package surface

import (
	"bytes"
	"strings"
	"testing"

	"sheetview-go-server/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(values ...[]string) []entity.Row {
	out := make([]entity.Row, len(values))
	for i, v := range values {
		row := make(entity.Row, len(v))
		for j, text := range v {
			row[j] = entity.StringCell(text)
		}
		out[i] = row
	}
	return out
}

func TestSurface_HeaderDrawnOnce(t *testing.T) {
	s, err := New([]string{"A", "<B>"})
	require.NoError(t, err)

	header := s.HeaderHTML()
	assert.Equal(t, `<tr><th>A</th><th>&lt;B&gt;</th></tr>`, string(header))

	_, err = s.ApplyPage(1, 1, rows([]string{"x", "1"}))
	require.NoError(t, err)

	// 翻页后表头不变
	assert.Equal(t, header, s.HeaderHTML())
	assert.Equal(t, []string{"A", "<B>"}, s.Snapshot().Columns)
}

func TestSurface_EscapesCellText(t *testing.T) {
	s, err := New([]string{"A"})
	require.NoError(t, err)

	applied, err := s.ApplyPage(1, 1, rows([]string{"<script>alert(1)</script>"}))
	require.NoError(t, err)
	require.True(t, applied)

	body, err := s.BodyHTML()
	require.NoError(t, err)

	assert.NotContains(t, string(body), "<script>")
	assert.Contains(t, string(body), "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestSurface_OutOfOrderResponses(t *testing.T) {
	// seq=2 先到，seq=1 后到：最终显示 seq=2 的数据，seq=1 从未绘制
	s, err := New([]string{"A", "B"})
	require.NoError(t, err)

	applied, err := s.ApplyPage(2, 2, rows([]string{"new", "2"}))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.ApplyPage(1, 1, rows([]string{"old", "1"}))
	require.NoError(t, err)
	assert.False(t, applied)

	snap := s.Snapshot()
	assert.Equal(t, [][]string{{"new", "2"}}, snap.Rows)
	assert.Equal(t, 2, snap.Page)
	assert.Equal(t, int64(2), snap.RequestSeq)

	body, err := s.BodyHTML()
	require.NoError(t, err)
	assert.NotContains(t, string(body), "old")
}

func TestSurface_ReplacesOnlyRowBody(t *testing.T) {
	s, err := New([]string{"A"})
	require.NoError(t, err)
	require.NoError(t, s.SetView(ViewState{SortColumn: 0, SortDesc: true, Filter: "x"}))

	_, err = s.ApplyPage(1, 1, rows([]string{"a"}, []string{"b"}))
	require.NoError(t, err)
	_, err = s.ApplyPage(2, 2, rows([]string{"c"}))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, [][]string{{"c"}}, snap.Rows)
	assert.Equal(t, ViewState{SortColumn: 0, SortDesc: true, Filter: "x"}, snap.View)
	assert.Equal(t, []string{"A"}, snap.Columns)
}

func TestSurface_CellKinds(t *testing.T) {
	s, err := New([]string{"s", "n", "b", "empty"})
	require.NoError(t, err)

	_, err = s.ApplyPage(1, 1, []entity.Row{{
		entity.StringCell("text"),
		entity.NumberCell(3.5),
		entity.BoolCell(false),
		entity.EmptyCell(),
	}})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"text", "3.5", "false", ""}}, s.Snapshot().Rows)
}

func TestSurface_Observe(t *testing.T) {
	s, err := New([]string{"A"})
	require.NoError(t, err)

	_, err = s.ApplyPage(1, 3, rows([]string{"a"}))
	require.NoError(t, err)

	assert.False(t, s.Observe(2))
	assert.True(t, s.Observe(4))

	// error(seq=4) 之后到达的 seq=4 以下的 page 都是旧的
	applied, err := s.ApplyPage(1, 4, rows([]string{"late"}))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSurface_MaxCellChars(t *testing.T) {
	s, err := New([]string{"A"}, WithMaxCellChars(4))
	require.NoError(t, err)

	_, err = s.ApplyPage(1, 1, rows([]string{"abcdefgh"}, []string{"abc"}))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"abcd…"}, {"abc"}}, s.Snapshot().Rows)
}

func TestRenderView_NonceAndEscaping(t *testing.T) {
	s, err := New([]string{"A"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = RenderView(&buf, ViewPage{
		Title:     `"<Sheet>" · book.xlsx`,
		SessionID: "sess-1",
		Token:     "TOKEN123",
		AssetPath: "/assets/",
		PageSize:  50,
		Header:    s.HeaderHTML(),
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `<script nonce="TOKEN123" src="/assets/viewer.js">`)
	assert.Contains(t, html, `href="/assets/viewer.css"`)
	assert.Contains(t, html, `<th>A</th>`)
	assert.NotContains(t, html, "<Sheet>")
	// 页面中只有一个 script 标签，且带 nonce
	assert.Equal(t, 1, strings.Count(html, "<script"))
}
