package pagination

import (
	"testing"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowWidthPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    RowWidthPolicy
		wantErr bool
	}{
		{"", RowWidthNormalize, false},
		{"normalize", RowWidthNormalize, false},
		{" Reject ", RowWidthReject, false},
		{"IGNORE", RowWidthIgnore, false},
		{"pad", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRowWidthPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeRows(t *testing.T) {
	short := entity.Row{entity.StringCell("a")}
	exact := entity.Row{entity.StringCell("a"), entity.NumberCell(2)}
	long := entity.Row{entity.StringCell("a"), entity.NumberCell(2), entity.BoolCell(true)}

	t.Run("normalize pads and truncates", func(t *testing.T) {
		rows, err := shapeRows([]entity.Row{short, exact, long}, 2, RowWidthNormalize)
		require.NoError(t, err)
		for _, row := range rows {
			assert.Len(t, row, 2)
		}
		assert.True(t, rows[0][1].IsEmpty())
		assert.Equal(t, "2", rows[2][1].Text())
		assert.Len(t, long, 3, "input rows are not modified")
	})

	t.Run("ignore forwards as-is", func(t *testing.T) {
		rows, err := shapeRows([]entity.Row{short, long}, 2, RowWidthIgnore)
		require.NoError(t, err)
		assert.Len(t, rows[0], 1)
		assert.Len(t, rows[1], 3)
	})

	t.Run("reject fails on first mismatch", func(t *testing.T) {
		_, err := shapeRows([]entity.Row{exact, long}, 2, RowWidthReject)
		require.Error(t, err)
		assert.Equal(t, domainErrors.KindProviderProtocolError, domainErrors.KindOf(err))
		assert.Contains(t, err.Error(), "row 2 has 3 cells")
	})

	t.Run("sheet without header is untouched", func(t *testing.T) {
		rows, err := shapeRows([]entity.Row{short, long}, 0, RowWidthReject)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}
