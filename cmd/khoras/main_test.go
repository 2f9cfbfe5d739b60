package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/config"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/iftikad"
	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

func newReconciler(t *testing.T) (*sheets.MockClient, *iftikad.Reconciler) {
	t.Helper()
	cfg := config.Default()
	client := sheets.NewMockClient(map[string]sheets.Grid{
		cfg.Tables.Attendance: {
			{cfg.Labels.Name, "Phone", "W1", "W2"},
			{"Mina", "0100", "1", ""},
			{"Sara", "0101", "", "1"},
		},
		cfg.Tables.Outreach: {
			{cfg.Labels.Name, cfg.Labels.AbsenceWeek, cfg.Labels.Called, cfg.Labels.CallDate, cfg.Labels.Notes},
			{"Sara", "W1", cfg.Labels.CalledYes, "2025-09-01", "busy"},
		},
	})
	return client, iftikad.NewReconciler(client, iftikad.Options{Tables: cfg.Tables, Labels: cfg.Labels})
}

func TestCommandValid(t *testing.T) {
	assert.False(t, command{}.valid())
	assert.True(t, command{weeks: true}.valid())
	assert.True(t, command{history: "Mina"}.valid())
	assert.False(t, command{latest: true, week: "W1"}.valid())
}

func TestRun(t *testing.T) {
	_, svc := newReconciler(t)

	tests := []struct {
		name string
		cmd  command
		want []string
	}{
		{"weeks", command{weeks: true}, []string{"W1\n", "W2\n"}},
		{"latest", command{latest: true}, []string{"NAME", "Mina", "0100", "W2"}},
		{"week", command{week: "W1"}, []string{"Sara", "2025-09-01", "busy"}},
		{"history", command{history: "Sara"}, []string{"WEEK", "W1", "busy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(context.Background(), &out, svc, tt.cmd))
			for _, s := range tt.want {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestRunWeekNotFound(t *testing.T) {
	_, svc := newReconciler(t)

	var out bytes.Buffer
	err := run(context.Background(), &out, svc, command{week: "W9"})
	assert.True(t, errors.Is(err, iftikad.ErrWeekNotFound))
}
