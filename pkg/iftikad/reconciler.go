package iftikad

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/config"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

var (
	ErrWeekNotFound = errors.New("week not found")
	ErrNameNotFound = errors.New("name not found")
)

// Absentee is a member who missed a week, with the outreach call state.
type Absentee struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Week     string `json:"week"`
	Called   string `json:"called"`
	CallDate string `json:"callDate"`
	Notes    string `json:"notes"`
}

// HistoryEntry is one missed week of a single member.
type HistoryEntry struct {
	Week     string `json:"week"`
	Called   string `json:"called"`
	CallDate string `json:"callDate"`
	Notes    string `json:"notes"`
}

// Options names the tables and labels the reconciler works with. Both
// ranges must start at row 1 so grid indexes map onto sheet rows.
type Options struct {
	Tables   config.Tables
	Labels   config.Labels
	Location *time.Location
	Now      func() time.Time
}

// Reconciler joins the weekly attendance table with the outreach log on
// (name, week). It keeps no state between calls; every call reads both
// tables in full.
type Reconciler struct {
	client sheets.GridClient
	opts   Options
}

func NewReconciler(client sheets.GridClient, opts Options) *Reconciler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{client: client, opts: opts}
}

func (r *Reconciler) today() string {
	return r.opts.Now().In(r.opts.Location).Format("2006-01-02")
}

func (r *Reconciler) readAttendance(ctx context.Context) (sheets.Grid, AttendanceSchema, error) {
	t := r.opts.Tables
	grid, err := r.client.ReadRange(ctx, t.Attendance, t.AttendanceRange)
	if err != nil {
		return nil, AttendanceSchema{}, errors.Wrap(err, "read attendance")
	}
	schema, err := resolveAttendance(t.Attendance, grid.Headers(), r.opts.Labels)
	if err != nil {
		return nil, AttendanceSchema{}, err
	}
	return grid, schema, nil
}

func (r *Reconciler) readOutreach(ctx context.Context) (*outreachLog, error) {
	t := r.opts.Tables
	grid, err := r.client.ReadRange(ctx, t.Outreach, t.OutreachRange)
	if err != nil {
		return nil, errors.Wrap(err, "read outreach log")
	}
	return newOutreachLog(t.Outreach, grid, r.opts.Labels)
}

// readBoth fetches the two tables concurrently.
func (r *Reconciler) readBoth(ctx context.Context) (sheets.Grid, AttendanceSchema, *outreachLog, error) {
	var (
		grid   sheets.Grid
		schema AttendanceSchema
		olog   *outreachLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grid, schema, err = r.readAttendance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		olog, err = r.readOutreach(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, AttendanceSchema{}, nil, err
	}
	return grid, schema, olog, nil
}

// Weeks lists every week label in the attendance table, oldest first.
func (r *Reconciler) Weeks(ctx context.Context) ([]string, error) {
	grid, schema, err := r.readAttendance(ctx)
	if err != nil {
		return nil, err
	}
	return schema.weekLabels(grid.Headers()), nil
}

// AbsenteesForWeek lists the members absent in week, in sheet order. An
// empty week selects the rightmost week column with a header.
func (r *Reconciler) AbsenteesForWeek(ctx context.Context, week string) ([]Absentee, error) {
	grid, schema, olog, err := r.readBoth(ctx)
	if err != nil {
		return nil, err
	}
	headers := grid.Headers()

	var (
		col int
		ok  bool
	)
	if strings.TrimSpace(week) != "" {
		col, ok = schema.weekColumn(headers, week)
	} else {
		col, ok = sheets.LastNonBlankColumnFrom(headers, schema.FirstWeek())
	}
	if !ok {
		return nil, errors.Wrapf(ErrWeekNotFound, "week %q", week)
	}
	label := strings.TrimSpace(sheets.CellString(headers, col))

	absentees := []Absentee{}
	for _, row := range grid[1:] {
		name := strings.TrimSpace(sheets.CellString(row, schema.Name))
		if name == "" || !sheets.IsBlankCell(row, col) {
			continue
		}
		st := olog.status(name, label)
		absentees = append(absentees, Absentee{
			Name:     name,
			Phone:    sheets.CellString(row, schema.Phone),
			Week:     label,
			Called:   st.Called,
			CallDate: st.CallDate,
			Notes:    st.Notes,
		})
	}
	log.Debugf("Found %d absentees for week %s", len(absentees), label)
	return absentees, nil
}

// AbsenceHistory lists every week the named member missed, in column
// order. An unknown name has no history.
func (r *Reconciler) AbsenceHistory(ctx context.Context, name string) ([]HistoryEntry, error) {
	grid, schema, olog, err := r.readBoth(ctx)
	if err != nil {
		return nil, err
	}
	history := []HistoryEntry{}
	idx, ok := schema.findMember(grid, name)
	if !ok {
		return history, nil
	}

	headers, row := grid.Headers(), grid[idx]
	for col := schema.FirstWeek(); col < len(headers); col++ {
		week := strings.TrimSpace(sheets.CellString(headers, col))
		if week == "" || !sheets.IsBlankCell(row, col) {
			continue
		}
		st := olog.status(name, week)
		history = append(history, HistoryEntry{
			Week:     week,
			Called:   st.Called,
			CallDate: st.CallDate,
			Notes:    st.Notes,
		})
	}
	return history, nil
}

// MarkCalled records that (name, week) was called today. The first log
// entry for the pair is updated; without one a new entry is appended.
func (r *Reconciler) MarkCalled(ctx context.Context, name, week string) error {
	name, week = strings.TrimSpace(name), strings.TrimSpace(week)
	olog, err := r.readOutreach(ctx)
	if err != nil {
		return err
	}
	if len(olog.grid) == 0 {
		return &sheets.ColumnNotFoundError{Table: olog.table, Label: r.opts.Labels.Name}
	}

	s, labels, today := olog.schema, r.opts.Labels, r.today()
	if i, ok := olog.find(name, week); ok {
		calledCell, err := sheets.CellName(s.Called, i+1)
		if err != nil {
			return err
		}
		dateCell, err := sheets.CellName(s.CallDate, i+1)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"name": name, "week": week}).Info("Updating outreach entry")
		return r.client.UpdateCells(ctx, olog.table, map[string]interface{}{
			calledCell: labels.CalledYes,
			dateCell:   today,
		})
	}

	row := make([]interface{}, s.Width)
	for i := range row {
		row[i] = ""
	}
	row[s.Name] = name
	row[s.Week] = week
	row[s.Called] = labels.CalledYes
	row[s.CallDate] = today
	log.WithFields(log.Fields{"name": name, "week": week}).Info("Appending outreach entry")
	return r.client.AppendRow(ctx, olog.table, row)
}

// MarkAttendance marks the named member present on date.
func (r *Reconciler) MarkAttendance(ctx context.Context, name, date string) error {
	grid, schema, err := r.readAttendance(ctx)
	if err != nil {
		return err
	}
	col, ok := schema.weekColumn(grid.Headers(), date)
	if !ok {
		return errors.Wrapf(ErrWeekNotFound, "date %q", date)
	}
	idx, ok := schema.findMember(grid, name)
	if !ok {
		return errors.Wrapf(ErrNameNotFound, "name %q", name)
	}
	cell, err := sheets.CellName(col, idx+1)
	if err != nil {
		return err
	}
	return r.client.UpdateCell(ctx, r.opts.Tables.Attendance, cell, r.opts.Labels.PresentValue)
}
