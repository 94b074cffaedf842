// Package surface 是渲染面的模型：表头只绘制一次，每条被接受的 page 消息只替换行体。
//
// 单元格内容一律视为不可信输入，转成文本并做 HTML 转义后才会输出。
package surface

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sync"
	"unicode/utf8"

	"sheetview-go-server/domain/entity"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ViewState 下游表格工具叠加在原始数据上的排序/过滤视图
// 翻页不会改动它
type ViewState struct {
	SortColumn int    `json:"sortColumn"` // -1 表示不排序
	SortDesc   bool   `json:"sortDesc"`
	Filter     string `json:"filter"`
}

// Snapshot 渲染面当前状态
type Snapshot struct {
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Page       int        `json:"page"`
	RequestSeq int64      `json:"requestSeq"`
	View       ViewState  `json:"view"`
}

// Surface 渲染面，按 requestSeq 而不是到达顺序决定是否应用 page
type Surface struct {
	mu           sync.RWMutex
	doc          []byte // Snapshot 的 JSON 文档，只通过 JSON Patch 修改
	lastSeq      int64
	header       template.HTML
	maxCellChars int
}

// Option 渲染选项
type Option func(*Surface)

// WithMaxCellChars 单元格文本超过 n 个字符时截断，0 表示不限制
func WithMaxCellChars(n int) Option {
	return func(s *Surface) { s.maxCellChars = n }
}

// New 创建渲染面，表头在这里绘制，之后不再变化
func New(columns []string, opts ...Option) (*Surface, error) {
	s := &Surface{}
	for _, opt := range opts {
		opt(s)
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	doc, err := json.Marshal(Snapshot{
		Columns: cols,
		Rows:    [][]string{},
		View:    ViewState{SortColumn: -1},
	})
	if err != nil {
		return nil, err
	}
	s.doc = doc

	var buf bytes.Buffer
	if err := headerTemplate.Execute(&buf, cols); err != nil {
		return nil, fmt.Errorf("render header: %w", err)
	}
	s.header = template.HTML(buf.String())
	return s, nil
}

// ApplyPage 应用一页数据
// requestSeq 不大于已应用的序号时视为过期，直接忽略（返回 false）
func (s *Surface) ApplyPage(page int, requestSeq int64, rows []entity.Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requestSeq <= s.lastSeq {
		return false, nil
	}

	// 只替换 /rows /page /requestSeq，表头和视图状态不在补丁范围内
	ops := []map[string]any{
		{"op": "replace", "path": "/rows", "value": s.cellTexts(rows)},
		{"op": "replace", "path": "/page", "value": page},
		{"op": "replace", "path": "/requestSeq", "value": requestSeq},
	}
	patchBytes, err := json.Marshal(ops)
	if err != nil {
		return false, err
	}
	patch, err := jsonpatch.DecodePatch(patchBytes)
	if err != nil {
		return false, fmt.Errorf("decode page patch: %w", err)
	}
	modified, err := patch.Apply(s.doc)
	if err != nil {
		return false, fmt.Errorf("apply page patch: %w", err)
	}

	s.doc = modified
	s.lastSeq = requestSeq
	return true, nil
}

// Observe 记录非 page 消息（error / endOfData）的序号
// 返回 false 表示该消息比已绘制的内容更旧，应忽略
func (s *Surface) Observe(requestSeq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if requestSeq < s.lastSeq {
		return false
	}
	s.lastSeq = requestSeq
	return true
}

// SetView 更新排序/过滤视图
func (s *Surface) SetView(view ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	patchBytes, err := json.Marshal([]map[string]any{
		{"op": "replace", "path": "/view", "value": view},
	})
	if err != nil {
		return err
	}
	patch, err := jsonpatch.DecodePatch(patchBytes)
	if err != nil {
		return err
	}
	modified, err := patch.Apply(s.doc)
	if err != nil {
		return err
	}
	s.doc = modified
	return nil
}

// Snapshot 获取当前状态副本
func (s *Surface) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	// doc 只由本包写入，解码失败说明内部状态损坏
	if err := json.Unmarshal(s.doc, &snap); err != nil {
		panic(fmt.Sprintf("surface snapshot corrupted: %v", err))
	}
	return snap
}

// HeaderHTML 已转义的表头（<tr><th>…</th></tr>）
func (s *Surface) HeaderHTML() template.HTML {
	return s.header
}

// BodyHTML 已转义的行体（<tr><td>…</td></tr>…）
func (s *Surface) BodyHTML() (template.HTML, error) {
	snap := s.Snapshot()
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, snap.Rows); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// cellTexts 单元格转文本（转义在模板里做）
func (s *Surface) cellTexts(rows []entity.Row) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		texts := make([]string, len(row))
		for j, cell := range row {
			texts[j] = truncate(cell.Text(), s.maxCellChars)
		}
		out[i] = texts
	}
	return out
}

func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
