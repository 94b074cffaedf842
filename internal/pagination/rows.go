package pagination

import (
	"fmt"
	"strings"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
)

// RowWidthPolicy 行宽与表头列数不一致时的处理方式
type RowWidthPolicy string

const (
	RowWidthIgnore    RowWidthPolicy = "ignore"    // 原样转发
	RowWidthNormalize RowWidthPolicy = "normalize" // 补空单元格或截断到表头宽度
	RowWidthReject    RowWidthPolicy = "reject"    // 视为 ProviderProtocolError
)

// ParseRowWidthPolicy 解析配置值，空字符串使用 normalize
func ParseRowWidthPolicy(s string) (RowWidthPolicy, error) {
	switch RowWidthPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RowWidthNormalize:
		return RowWidthNormalize, nil
	case RowWidthIgnore:
		return RowWidthIgnore, nil
	case RowWidthReject:
		return RowWidthReject, nil
	default:
		return "", fmt.Errorf("unknown row width policy %q (want ignore, normalize or reject)", s)
	}
}

// shapeRows 按策略处理行宽；表头为空时（工作表没有表头）不做处理
func shapeRows(rows []entity.Row, width int, policy RowWidthPolicy) ([]entity.Row, error) {
	if width == 0 || policy == RowWidthIgnore {
		return rows, nil
	}

	out := make([]entity.Row, len(rows))
	for i, row := range rows {
		switch {
		case len(row) == width:
			out[i] = row
		case policy == RowWidthReject:
			return nil, domainErrors.NewProviderError(domainErrors.KindProviderProtocolError,
				fmt.Sprintf("row %d has %d cells, expected %d", i+1, len(row), width), nil)
		case len(row) > width:
			out[i] = row[:width]
		default:
			padded := make(entity.Row, width)
			copy(padded, row)
			out[i] = padded
		}
	}
	return out, nil
}
