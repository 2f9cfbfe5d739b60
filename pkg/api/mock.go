package api

import (
	"context"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/roster"
)

type mockScoreService struct {
	EntriesFunc    func(ctx context.Context) ([]roster.Entry, error)
	ApplyBatchFunc func(ctx context.Context, updates []roster.Update) roster.BatchResult
}

func (m *mockScoreService) Entries(ctx context.Context) ([]roster.Entry, error) {
	return m.EntriesFunc(ctx)
}
func (m *mockScoreService) ApplyBatch(ctx context.Context, updates []roster.Update) roster.BatchResult {
	return m.ApplyBatchFunc(ctx, updates)
}

type mockOutreachService struct {
	WeeksFunc            func(ctx context.Context) ([]string, error)
	AbsenteesForWeekFunc func(ctx context.Context, week string) ([]iftikad.Absentee, error)
	AbsenceHistoryFunc   func(ctx context.Context, name string) ([]iftikad.HistoryEntry, error)
	MarkCalledFunc       func(ctx context.Context, name, week string) error
	MarkAttendanceFunc   func(ctx context.Context, name, date string) error
}

func (m *mockOutreachService) Weeks(ctx context.Context) ([]string, error) {
	return m.WeeksFunc(ctx)
}
func (m *mockOutreachService) AbsenteesForWeek(ctx context.Context, week string) ([]iftikad.Absentee, error) {
	return m.AbsenteesForWeekFunc(ctx, week)
}
func (m *mockOutreachService) AbsenceHistory(ctx context.Context, name string) ([]iftikad.HistoryEntry, error) {
	return m.AbsenceHistoryFunc(ctx, name)
}
func (m *mockOutreachService) MarkCalled(ctx context.Context, name, week string) error {
	return m.MarkCalledFunc(ctx, name, week)
}
func (m *mockOutreachService) MarkAttendance(ctx context.Context, name, date string) error {
	return m.MarkAttendanceFunc(ctx, name, date)
}
