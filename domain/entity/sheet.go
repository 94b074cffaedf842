package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SheetDescriptor 工作表描述（由数据提供者每个文件返回一次，不可变）
type SheetDescriptor struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// FindSheet 在提供者返回的列表中按名称查找工作表
// 会话只能使用列表里出现过的工作表，不接受临时拼出来的名称
func FindSheet(sheets []SheetDescriptor, name string) (SheetDescriptor, bool) {
	for _, s := range sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetDescriptor{}, false
}

// PageRequest 分页请求，由控制器构造
type PageRequest struct {
	FilePath   string `json:"filePath"`
	SheetName  string `json:"sheetName"`
	PageNumber int    `json:"pageNumber"` // >= 1
	PageSize   int    `json:"pageSize"`   // > 0，会话内固定
	RequestSeq int64  `json:"requestSeq"` // 单调递增，用于丢弃过期响应
}

// Validate 检查请求参数
func (r PageRequest) Validate() error {
	if r.SheetName == "" {
		return fmt.Errorf("sheet name is required")
	}
	if r.PageNumber < 1 {
		return fmt.Errorf("page number must be >= 1, got %d", r.PageNumber)
	}
	if r.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0, got %d", r.PageSize)
	}
	return nil
}

// Cell 单元格值：string / number / bool / 空
// 零值表示空单元格
type Cell struct {
	value any
}

// StringCell 等构造函数
func StringCell(s string) Cell  { return Cell{value: s} }
func NumberCell(f float64) Cell { return Cell{value: f} }
func BoolCell(b bool) Cell      { return Cell{value: b} }
func EmptyCell() Cell           { return Cell{} }

// IsEmpty 单元格是否为空
func (c Cell) IsEmpty() bool { return c.value == nil }

// Value 返回底层值（string、float64、bool 或 nil）
func (c Cell) Value() any { return c.value }

// Text 转为展示文本（未转义，转义由渲染层负责）
func (c Cell) Text() string {
	switch v := c.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON 实现 json.Marshaler
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

// UnmarshalJSON 只接受 string / number / bool / null
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case nil, string, float64, bool:
		c.value = raw
		return nil
	default:
		return fmt.Errorf("unsupported cell value: %s", string(data))
	}
}

// Row 一行单元格
type Row []Cell

// PageResult 单页数据
// 空 Rows 且无错误表示没有更多数据
type PageResult struct {
	Rows []Row `json:"rows"`
}

// IsEmpty 是否为数据末尾
func (p PageResult) IsEmpty() bool { return len(p.Rows) == 0 }
