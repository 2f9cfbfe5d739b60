package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/roster"
)

var errMissingDelta = errors.New("missing delta")

type ScoreService interface {
	Entries(ctx context.Context) ([]roster.Entry, error)
	ApplyBatch(ctx context.Context, updates []roster.Update) roster.BatchResult
}

type OutreachService interface {
	Weeks(ctx context.Context) ([]string, error)
	AbsenteesForWeek(ctx context.Context, week string) ([]iftikad.Absentee, error)
	AbsenceHistory(ctx context.Context, name string) ([]iftikad.HistoryEntry, error)
	MarkCalled(ctx context.Context, name, week string) error
	MarkAttendance(ctx context.Context, name, date string) error
}

// scoreUpdate entries are checked one by one so a bad entry does not reject
// the rest of the batch.
type scoreUpdate struct {
	Code  string `json:"code"`
	Delta *int   `json:"delta"`
}

type submitRequest struct {
	Updates []scoreUpdate `json:"updates" validate:"required"`
}

// split separates the entries that can be applied from those missing a
// delta. Blank codes are left to the scorer, which reports them as unknown.
func (r submitRequest) split() ([]roster.Update, []roster.EntryError) {
	updates := make([]roster.Update, 0, len(r.Updates))
	rejected := []roster.EntryError{}
	for _, u := range r.Updates {
		if u.Delta == nil {
			rejected = append(rejected, roster.EntryError{Code: u.Code, Error: errMissingDelta.Error(), Err: errMissingDelta})
			continue
		}
		updates = append(updates, roster.Update{Code: u.Code, Delta: *u.Delta})
	}
	return updates, rejected
}

type submitResponse struct {
	Success bool                `json:"success"`
	Results []roster.Result     `json:"results"`
	Errors  []roster.EntryError `json:"errors,omitempty"`
}

type callRequest struct {
	Name string `json:"name" validate:"notblank"`
	Week string `json:"week" validate:"notblank"`
}

type attendanceRequest struct {
	Name string `json:"name" validate:"notblank"`
	Date string `json:"date" validate:"notblank"`
}
