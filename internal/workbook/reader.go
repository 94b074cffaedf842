// Package workbook 用 excelize 读取 .xlsx 工作簿，是参考数据提供者的实现。
//
// 第一行作为表头；数据行从第二行开始按页切片。
package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"

	"github.com/xuri/excelize/v2"
)

// Reader 打开的工作簿
type Reader struct {
	f *excelize.File
}

// Open 打开工作簿
// excelize 不支持旧的二进制 .xls，这里按 UnsupportedFormat 报告
func Open(path string) (*Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
	case ".xls":
		return nil, domainErrors.NewProviderError(domainErrors.KindUnsupportedFormat,
			"legacy .xls workbooks are not supported by this provider, save as .xlsx", nil)
	default:
		return nil, domainErrors.NewProviderError(domainErrors.KindUnsupportedFormat,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domainErrors.NewProviderError(domainErrors.KindFileNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		return nil, domainErrors.NewProviderError(domainErrors.KindIOError, err.Error(), err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domainErrors.NewProviderError(domainErrors.KindParseError,
			fmt.Sprintf("cannot parse workbook: %v", err), err)
	}
	return &Reader{f: f}, nil
}

// Close 关闭工作簿
func (r *Reader) Close() error {
	return r.f.Close()
}

// Sheets 按工作簿中的顺序列出工作表和表头
func (r *Reader) Sheets() ([]entity.SheetDescriptor, error) {
	names := r.f.GetSheetList()
	sheets := make([]entity.SheetDescriptor, 0, len(names))

	for _, name := range names {
		rows, err := r.f.GetRows(name)
		if err != nil {
			return nil, domainErrors.NewProviderError(domainErrors.KindParseError,
				fmt.Sprintf("cannot read sheet %q: %v", name, err), err)
		}
		columns := []string{}
		if len(rows) > 0 {
			columns = header(rows[0])
		}
		sheets = append(sheets, entity.SheetDescriptor{Name: name, Columns: columns})
	}
	return sheets, nil
}

// Page 读取第 page 页（从 1 开始），越过末尾返回空切片
func (r *Reader) Page(sheet string, page, size int) ([]entity.Row, error) {
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page %d / size %d", page, size)
	}

	index, err := r.f.GetSheetIndex(sheet)
	if err != nil || index < 0 {
		return nil, domainErrors.NewProviderError(domainErrors.KindSheetNotFound,
			fmt.Sprintf("worksheet named '%s' not found", sheet), err)
	}

	rows, err := r.f.GetRows(sheet)
	if err != nil {
		return nil, domainErrors.NewProviderError(domainErrors.KindIOError,
			fmt.Sprintf("cannot read sheet %q: %v", sheet, err), err)
	}
	if len(rows) == 0 {
		return []entity.Row{}, nil
	}

	width := len(rows[0])
	data := rows[1:]

	start := (page - 1) * size
	if start >= len(data) {
		return []entity.Row{}, nil
	}
	end := start + size
	if end > len(data) {
		end = len(data)
	}

	out := make([]entity.Row, 0, end-start)
	for _, raw := range data[start:end] {
		out = append(out, toRow(raw, width))
	}
	return out, nil
}

// header 空表头单元格命名为 "Unnamed: N"
func header(cells []string) []string {
	columns := make([]string, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			c = "Unnamed: " + strconv.Itoa(i)
		}
		columns[i] = c
	}
	return columns
}

// toRow 补齐到表头宽度，缺失的单元格为空
func toRow(raw []string, width int) entity.Row {
	if len(raw) > width {
		width = len(raw)
	}
	row := make(entity.Row, width)
	for i, v := range raw {
		row[i] = parseCell(v)
	}
	return row
}

// parseCell GetRows 返回格式化后的文本，这里尽量还原数字和布尔
func parseCell(s string) entity.Cell {
	switch s {
	case "":
		return entity.EmptyCell()
	case "TRUE":
		return entity.BoolCell(true)
	case "FALSE":
		return entity.BoolCell(false)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return entity.NumberCell(f)
	}
	return entity.StringCell(s)
}
