package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/config"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/roster"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

func setup(t *testing.T) (*sheets.MockClient, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Labels.CalledYes = "yes"
	cfg.Labels.CalledNo = "no"

	client := sheets.NewMockClient(map[string]sheets.Grid{
		cfg.Tables.Roster: {
			{"ID", "Code", "Name", "Class", "Team", "Score"},
			{"1", "ABC123", "Name", "C1", "T1", "10"},
			{"2", "DEF456", "Mina", "C1", "T2", "40"},
			{"3", "GHI789", "Sara", "C2", "T1", ""},
		},
		cfg.Tables.Attendance: {
			{cfg.Labels.Name, "Phone", "2025-09-05", "2025-09-12"},
			{"Mina", "0100", "1", ""},
			{"Sara", "0101", "0", "1"},
		},
		cfg.Tables.Outreach: {
			{cfg.Labels.Name, cfg.Labels.AbsenceWeek, cfg.Labels.Called, cfg.Labels.CallDate, cfg.Labels.Notes},
		},
	})
	cache := roster.NewCache(client, cfg.Tables.Roster, cfg.Tables.RosterRange)
	reconciler := iftikad.NewReconciler(client, iftikad.Options{
		Tables: cfg.Tables,
		Labels: cfg.Labels,
		Now: func() time.Time {
			return time.Date(2025, 9, 14, 10, 0, 0, 0, time.UTC)
		},
	})
	h := NewHandler(roster.NewScorer(client, cache), reconciler)
	return client, GetRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestGetCodes(t *testing.T) {
	_, router := setup(t)

	rec := do(t, router, http.MethodGet, "/api/codes", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var entries []roster.Entry
	decode(t, rec, &entries)
	require.Len(t, entries, 3)
	assert.Equal(t, roster.Entry{ID: "1", Code: "ABC123", Name: "Name", Class: "C1", Team: "T1", Score: 10}, entries[0])
	assert.Equal(t, 0, entries[2].Score)
}

func TestGetScoresSorted(t *testing.T) {
	_, router := setup(t)

	rec := do(t, router, http.MethodGet, "/api/scores", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []roster.Entry
	decode(t, rec, &entries)
	var codes []string
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"DEF456", "ABC123", "GHI789"}, codes)
}

func TestPostSubmit(t *testing.T) {
	client, router := setup(t)

	rec := do(t, router, http.MethodPost, "/api/submit", map[string]interface{}{
		"updates": []map[string]interface{}{
			{"code": "ABC123", "delta": 25},
			{"code": "UNKNOWN", "delta": 5},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool            `json:"success"`
		Results []roster.Result `json:"results"`
		Errors  []struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, []roster.Result{{Code: "ABC123", PreviousScore: 10, NewScore: 35, PointsAdded: 25}}, resp.Results)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "UNKNOWN", resp.Errors[0].Code)
	assert.Contains(t, resp.Errors[0].Error, "code not found")
	assert.Equal(t, 35, client.Cell("AllUsers", "F2"))

	rec = do(t, router, http.MethodGet, "/api/scores", nil)
	var entries []roster.Entry
	decode(t, rec, &entries)
	assert.Equal(t, "DEF456", entries[0].Code)
	assert.Equal(t, 35, entries[1].Score)
}

func TestPostSubmitInvalid(t *testing.T) {
	_, router := setup(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"not json", "{"},
		{"missing updates", map[string]interface{}{}},
		{"updates not a list", `{"updates": "ABC123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/submit", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPostSubmitMixedBatch(t *testing.T) {
	client, router := setup(t)

	rec := do(t, router, http.MethodPost, "/api/submit", map[string]interface{}{
		"updates": []map[string]interface{}{
			{"code": "ABC123", "delta": 25},
			{"code": " ", "delta": 5},
			{"code": "DEF456"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []roster.Result `json:"results"`
		Errors  []struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 35, resp.Results[0].NewScore)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "DEF456", resp.Errors[0].Code)
	assert.Equal(t, "missing delta", resp.Errors[0].Error)
	assert.Equal(t, " ", resp.Errors[1].Code)
	assert.Contains(t, resp.Errors[1].Error, "code not found")

	assert.Equal(t, 35, client.Cell("AllUsers", "F2"))
	assert.Equal(t, "40", client.Cell("AllUsers", "F3"))
}

func TestIftikadList(t *testing.T) {
	_, router := setup(t)

	rec := do(t, router, http.MethodGet, "/api/iftikad-list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Absentees []iftikad.Absentee `json:"absentees"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, []iftikad.Absentee{{Name: "Mina", Phone: "0100", Week: "2025-09-12", Called: "no"}}, resp.Absentees)

	rec = do(t, router, http.MethodGet, "/api/iftikad-list?week=2025-09-05", nil)
	decode(t, rec, &resp)
	require.Len(t, resp.Absentees, 1)
	assert.Equal(t, "Sara", resp.Absentees[0].Name)

	rec = do(t, router, http.MethodGet, "/api/iftikad-list?allWeeks=1", nil)
	var weeks struct {
		Weeks []string `json:"weeks"`
	}
	decode(t, rec, &weeks)
	assert.Equal(t, []string{"2025-09-05", "2025-09-12"}, weeks.Weeks)

	rec = do(t, router, http.MethodGet, "/api/iftikad-list?week=2030-01-01", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIftikadCallAndHistory(t *testing.T) {
	_, router := setup(t)

	rec := do(t, router, http.MethodPost, "/api/iftikad-call", map[string]string{"name": "Mina", "week": "2025-09-12"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/iftikad-history?name=Mina", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		History []iftikad.HistoryEntry `json:"history"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, []iftikad.HistoryEntry{{Week: "2025-09-12", Called: "yes", CallDate: "2025-09-14"}}, resp.History)

	rec = do(t, router, http.MethodGet, "/api/iftikad-history?name=Nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Empty(t, resp.History)
	assert.Contains(t, rec.Body.String(), `"history":[]`)

	rec = do(t, router, http.MethodGet, "/api/iftikad-history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/iftikad-call", map[string]string{"name": "Mina"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostAttendance(t *testing.T) {
	client, router := setup(t)

	rec := do(t, router, http.MethodPost, "/api/attendance", map[string]string{"name": "Mina", "date": "2025-09-12"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1", client.Cell("الغياب", "D2"))

	rec = do(t, router, http.MethodPost, "/api/attendance", map[string]string{"name": "Nobody", "date": "2025-09-12"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreflightAndHealth(t *testing.T) {
	_, router := setup(t)

	rec := do(t, router, http.MethodOptions, "/api/submit", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&sheets.RemoteUnavailableError{Op: "read_range", Attempts: 3, Err: fmt.Errorf("x")}, http.StatusServiceUnavailable},
		{errors.Wrap(&sheets.ColumnNotFoundError{Label: "Name"}, "read"), http.StatusNotFound},
		{errors.Wrap(iftikad.ErrWeekNotFound, "week"), http.StatusNotFound},
		{iftikad.ErrNameNotFound, http.StatusNotFound},
		{roster.ErrCodeNotFound, http.StatusNotFound},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestRemoteUnavailable(t *testing.T) {
	down := &sheets.RemoteUnavailableError{Op: "read_range", Attempts: 3, Err: fmt.Errorf("timeout")}
	h := NewHandler(
		&mockScoreService{
			EntriesFunc: func(ctx context.Context) ([]roster.Entry, error) { return nil, down },
		},
		&mockOutreachService{
			AbsenteesForWeekFunc: func(ctx context.Context, week string) ([]iftikad.Absentee, error) { return nil, down },
			MarkCalledFunc:       func(ctx context.Context, name, week string) error { return down },
		},
	)
	router := GetRouter(h)

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/codes", nil},
		{http.MethodGet, "/api/scores", nil},
		{http.MethodGet, "/api/iftikad-list", nil},
		{http.MethodPost, "/api/iftikad-call", map[string]string{"name": "Mina", "week": "W1"}},
	} {
		rec := do(t, router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
		assert.Contains(t, rec.Body.String(), "timeout")
	}
}

func TestGetCodesEmptyRoster(t *testing.T) {
	h := NewHandler(
		&mockScoreService{
			EntriesFunc: func(ctx context.Context) ([]roster.Entry, error) {
				return nil, errors.Wrap(roster.ErrNoData, "table AllUsers")
			},
		},
		&mockOutreachService{},
	)
	router := GetRouter(h)

	rec := do(t, router, http.MethodGet, "/api/codes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"No data found"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/scores", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetCodesHeaderOnly(t *testing.T) {
	client := sheets.NewMockClient(map[string]sheets.Grid{
		"AllUsers": {{"ID", "Code", "Name", "Class", "Team", "Score"}},
	})
	scorer := roster.NewScorer(client, roster.NewCache(client, "AllUsers", "A:F"))
	router := GetRouter(NewHandler(scorer, &mockOutreachService{}))

	rec := do(t, router, http.MethodGet, "/api/codes", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	client = sheets.NewMockClient(nil)
	scorer = roster.NewScorer(client, roster.NewCache(client, "AllUsers", "A:F"))
	router = GetRouter(NewHandler(scorer, &mockOutreachService{}))

	rec = do(t, router, http.MethodGet, "/api/codes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
