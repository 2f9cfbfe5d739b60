package sheets

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// ResolveColumn returns the index of the first header equal to label after
// trimming both sides. Matching is case-sensitive. Blank headers never match.
func ResolveColumn(headers Row, label string) (int, bool) {
	want := strings.TrimSpace(label)
	if want == "" {
		return -1, false
	}
	for i := range headers {
		if strings.TrimSpace(CellString(headers, i)) == want {
			return i, true
		}
	}
	return -1, false
}

// RequireColumn is ResolveColumn for columns the caller cannot do without.
func RequireColumn(table string, headers Row, label string) (int, error) {
	idx, ok := ResolveColumn(headers, label)
	if !ok {
		return -1, &ColumnNotFoundError{Table: table, Label: label}
	}
	return idx, nil
}

// LastNonBlankColumnFrom scans the header row from its end back down to
// start and returns the first column with a non-blank header.
func LastNonBlankColumnFrom(headers Row, start int) (int, bool) {
	if start < 0 {
		start = 0
	}
	for i := len(headers) - 1; i >= start; i-- {
		if strings.TrimSpace(CellString(headers, i)) != "" {
			return i, true
		}
	}
	return -1, false
}

// CellName converts a zero-based column and a one-based sheet row into an
// A1 reference such as "F12" or "AB3".
func CellName(col, row int) (string, error) {
	return excelize.CoordinatesToCellName(col+1, row)
}

// CellRange prefixes a range with its sheet name, quoting the name when the
// Sheets API requires it.
func CellRange(table, rng string) string {
	if needsQuoting(table) {
		table = "'" + strings.ReplaceAll(table, "'", "''") + "'"
	}
	if rng == "" {
		return table
	}
	return table + "!" + rng
}

func needsQuoting(table string) bool {
	for _, r := range table {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
