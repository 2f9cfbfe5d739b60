package sheets

import (
	"context"
	"fmt"
)

// Row is a single spreadsheet row. Cells are strings or numbers as returned
// by the Sheets API; trailing empty cells are usually omitted.
type Row []interface{}

// Grid is the raw content of one table. Grid[0] is the header row.
type Grid []Row

// GridClient is the remote tabular store used by the access layer.
type GridClient interface {
	ReadRange(ctx context.Context, table, rng string) (Grid, error)
	UpdateCell(ctx context.Context, table, cell string, value interface{}) error
	UpdateCells(ctx context.Context, table string, cells map[string]interface{}) error
	AppendRow(ctx context.Context, table string, values []interface{}) error
}

// Headers returns the header row, or nil for an empty grid.
func (g Grid) Headers() Row {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// Clone returns a deep copy of the grid so callers can hold it while the
// original is mutated.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = make(Row, len(row))
		copy(out[i], row)
	}
	return out
}

// CellString returns the cell at i as text. Missing and nil cells are "".
func CellString(row Row, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}

// IsBlankCell reports whether the cell at i is absent, empty, "0" or a
// numeric zero. Any other value counts as set.
func IsBlankCell(row Row, i int) bool {
	if i < 0 || i >= len(row) || row[i] == nil {
		return true
	}
	switch v := row[i].(type) {
	case string:
		return v == "" || v == "0"
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case bool:
		return !v
	}
	return false
}
