package roster

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

// The roster sheet has a fixed layout; its headers are never consulted.
// Do not reorder these columns in the spreadsheet.
type colIdx int

const (
	ColumnID    colIdx = 0
	ColumnCode  colIdx = 1
	ColumnName  colIdx = 2
	ColumnClass colIdx = 3
	ColumnTeam  colIdx = 4
	ColumnScore colIdx = 5
)

type Entry struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Team  string `json:"team"`
	Score int    `json:"score"`
}

func rowToEntry(row sheets.Row) Entry {
	get := func(c colIdx) string {
		return sheets.CellString(row, int(c))
	}
	return Entry{
		ID:    get(ColumnID),
		Code:  get(ColumnCode),
		Name:  get(ColumnName),
		Class: get(ColumnClass),
		Team:  get(ColumnTeam),
		Score: parseScore(row, int(ColumnScore)),
	}
}

// ToEntries maps every data row of a roster grid, skipping the header row.
func ToEntries(grid sheets.Grid) []Entry {
	if len(grid) < 2 {
		return []Entry{}
	}
	entries := make([]Entry, 0, len(grid)-1)
	for _, row := range grid[1:] {
		entries = append(entries, rowToEntry(row))
	}
	return entries
}

// findByCode returns the one-based sheet row of the first data row with the
// given code. A blank code matches nothing.
func findByCode(grid sheets.Grid, code string) (int, Entry, bool) {
	if strings.TrimSpace(code) == "" {
		return 0, Entry{}, false
	}
	for i := 1; i < len(grid); i++ {
		if sheets.CellString(grid[i], int(ColumnCode)) == code {
			return i + 1, rowToEntry(grid[i]), true
		}
	}
	return 0, Entry{}, false
}

// parseScore reads a score cell. Blank or unparseable cells count as 0.
func parseScore(row sheets.Row, i int) int {
	if i >= len(row) || row[i] == nil {
		return 0
	}
	switch v := row[i].(type) {
	case float64:
		return truncate(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	s := strings.TrimSpace(sheets.CellString(row, i))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return truncate(f)
	}
	return 0
}

func truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// SortByScore orders entries by descending score, keeping sheet order for
// ties.
func SortByScore(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
