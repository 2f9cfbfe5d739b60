package iftikad

import (
	"strings"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/config"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

// AttendanceSchema locates the columns of the weekly attendance table. The
// phone column is always the one right after the name column.
type AttendanceSchema struct {
	Name  int
	Phone int
}

// FirstWeek is the first column that may hold a week.
func (s AttendanceSchema) FirstWeek() int { return s.Phone + 1 }

func resolveAttendance(table string, headers sheets.Row, labels config.Labels) (AttendanceSchema, error) {
	name, err := sheets.RequireColumn(table, headers, labels.Name)
	if err != nil {
		return AttendanceSchema{}, err
	}
	return AttendanceSchema{Name: name, Phone: name + 1}, nil
}

// weekColumn finds an explicitly named week among the week columns.
func (s AttendanceSchema) weekColumn(headers sheets.Row, week string) (int, bool) {
	want := strings.TrimSpace(week)
	for i := s.FirstWeek(); i < len(headers); i++ {
		if want != "" && strings.TrimSpace(sheets.CellString(headers, i)) == want {
			return i, true
		}
	}
	return -1, false
}

// weekLabels lists the non-blank week headers in column order.
func (s AttendanceSchema) weekLabels(headers sheets.Row) []string {
	weeks := []string{}
	for i := s.FirstWeek(); i < len(headers); i++ {
		if w := strings.TrimSpace(sheets.CellString(headers, i)); w != "" {
			weeks = append(weeks, w)
		}
	}
	return weeks
}

// findMember returns the grid index of the first data row whose trimmed
// name matches.
func (s AttendanceSchema) findMember(grid sheets.Grid, name string) (int, bool) {
	want := strings.TrimSpace(name)
	if want == "" {
		return -1, false
	}
	for i := 1; i < len(grid); i++ {
		if strings.TrimSpace(sheets.CellString(grid[i], s.Name)) == want {
			return i, true
		}
	}
	return -1, false
}

// OutreachSchema locates the columns of the outreach log by header text.
// Notes is -1 when the log has no notes column.
type OutreachSchema struct {
	Name     int
	Week     int
	Called   int
	CallDate int
	Notes    int
	Width    int
}

func resolveOutreach(table string, headers sheets.Row, labels config.Labels) (OutreachSchema, error) {
	var (
		s   OutreachSchema
		err error
	)
	required := []struct {
		dst   *int
		label string
	}{
		{&s.Name, labels.Name},
		{&s.Week, labels.AbsenceWeek},
		{&s.Called, labels.Called},
		{&s.CallDate, labels.CallDate},
	}
	for _, col := range required {
		if *col.dst, err = sheets.RequireColumn(table, headers, col.label); err != nil {
			return OutreachSchema{}, err
		}
	}
	s.Notes, _ = sheets.ResolveColumn(headers, labels.Notes)

	s.Width = len(headers)
	for _, idx := range []int{s.Name, s.Week, s.Called, s.CallDate, s.Notes} {
		if idx+1 > s.Width {
			s.Width = idx + 1
		}
	}
	return s, nil
}

// outreachLog is the outreach table with its resolved schema. A log with no
// header row has no entries.
type outreachLog struct {
	table  string
	schema OutreachSchema
	grid   sheets.Grid
	labels config.Labels
}

func newOutreachLog(table string, grid sheets.Grid, labels config.Labels) (*outreachLog, error) {
	l := &outreachLog{table: table, grid: grid, labels: labels}
	if len(grid) == 0 {
		return l, nil
	}
	schema, err := resolveOutreach(table, grid.Headers(), labels)
	if err != nil {
		return nil, err
	}
	l.schema = schema
	return l, nil
}

// find returns the grid index of the first entry for (name, week).
func (l *outreachLog) find(name, week string) (int, bool) {
	name, week = strings.TrimSpace(name), strings.TrimSpace(week)
	for i := 1; i < len(l.grid); i++ {
		row := l.grid[i]
		if strings.TrimSpace(sheets.CellString(row, l.schema.Name)) == name &&
			strings.TrimSpace(sheets.CellString(row, l.schema.Week)) == week {
			return i, true
		}
	}
	return -1, false
}

type callStatus struct {
	Called   string
	CallDate string
	Notes    string
}

// status projects the call state of (name, week). Pairs without an entry
// have not been called yet.
func (l *outreachLog) status(name, week string) callStatus {
	st := callStatus{Called: l.labels.CalledNo}
	i, ok := l.find(name, week)
	if !ok {
		return st
	}
	row := l.grid[i]
	if called := sheets.CellString(row, l.schema.Called); called != "" {
		st.Called = called
	}
	st.CallDate = sheets.CellString(row, l.schema.CallDate)
	st.Notes = sheets.CellString(row, l.schema.Notes)
	return st
}
