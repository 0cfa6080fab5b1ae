package pdfgrid

import "strings"

// Grid is the cell text extracted from one table region.
type Grid struct {
	RegionID string      `json:"region_id"`
	Page     int         `json:"page"`
	Bounds   Bounds      `json:"bounds"`
	Rows     int         `json:"rows"`
	Cols     int         `json:"cols"`
	Cells    [][]string  `json:"cells"`
	Tokens   []TextToken `json:"tokens"`
}

// ExtractGrid partitions a region by its split lines and places every
// captured token into the cell containing its top-left corner. Tokens that
// share a cell are joined with single spaces in capture order, which is the
// renderer's reading order.
func ExtractGrid(region TableRegion) Grid {
	rowBounds := boundaries(region.Bounds.Y, region.Bounds.Bottom(), region.RowSplits)
	colBounds := boundaries(region.Bounds.X, region.Bounds.Right(), region.ColumnSplits)

	rows := len(rowBounds) - 1
	cols := len(colBounds) - 1

	cells := make([][]strings.Builder, rows)
	for i := range cells {
		cells[i] = make([]strings.Builder, cols)
	}

	for _, token := range region.Tokens {
		row := cellIndex(token.Y, rowBounds)
		col := cellIndex(token.X, colBounds)
		if row < 0 || col < 0 {
			continue
		}

		cell := &cells[row][col]
		if cell.Len() > 0 {
			cell.WriteByte(' ')
		}
		cell.WriteString(token.Text)
	}

	matrix := make([][]string, rows)
	for i := range cells {
		matrix[i] = make([]string, cols)
		for j := range cells[i] {
			matrix[i][j] = cells[i][j].String()
		}
	}

	return Grid{
		RegionID: region.ID,
		Page:     region.Page,
		Bounds:   region.Bounds,
		Rows:     rows,
		Cols:     cols,
		Cells:    matrix,
		Tokens:   append([]TextToken(nil), region.Tokens...),
	}
}

// boundaries returns [start, splits..., end]. Splits are already sorted and
// strictly inside (start, end).
func boundaries(start, end float64, splits []float64) []float64 {
	out := make([]float64, 0, len(splits)+2)
	out = append(out, start)
	out = append(out, splits...)
	return append(out, end)
}

// cellIndex finds the interval [b[i], b[i+1]) containing v. A value exactly on
// a boundary belongs to the cell that starts there; a value on the far edge
// belongs to the last cell. Values outside the extent return -1.
func cellIndex(v float64, b []float64) int {
	last := len(b) - 1
	for i := 0; i < last; i++ {
		if v >= b[i] && v < b[i+1] {
			return i
		}
	}
	if last > 0 && v == b[last] {
		return last - 1
	}
	return -1
}
