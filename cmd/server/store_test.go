package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/internal/store"
	"github.com/rhyrak/localsearch/pkg/model"
)

var scheduleColumns = []string{"id", "status", "strategy", "reason", "hard", "soft", "instance", "report", "created_at", "finished_at"}

func storedRecord(t *testing.T) *store.Record {
	t.Helper()
	inst, err := model.NewInstance(
		[]model.Event{{ID: "E1", Name: "Algebra", Duration: 1, Size: 1}},
		[]model.Resource{{ID: "R1", Period: 0, Location: "hall", Capacity: 1}},
		nil, model.Weights{})
	require.NoError(t, err)
	report := &scheduler.Report{
		RunID:      "stored-1",
		Strategy:   scheduler.HillClimbing,
		Reason:     scheduler.ReasonSolved,
		Placements: []model.Placement{{Event: "E1", Resource: "R1", Period: 0, Location: "hall", Duration: 1}},
	}
	created := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	rec, err := store.NewRecord(statusDone, inst, report, created, created.Add(time.Second))
	require.NoError(t, err)
	return rec
}

func storeServer(t *testing.T) (*server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := testServer(10)
	s.store = store.NewScheduleRepository(sqlx.NewDb(db, "postgres"))
	return s, mock
}

func expectGet(mock sqlmock.Sqlmock, rec *store.Record) {
	mock.ExpectQuery("SELECT (.+) FROM schedules WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(sqlmock.NewRows(scheduleColumns).
			AddRow(rec.ID, rec.Status, rec.Strategy, rec.Reason, rec.Hard, rec.Soft, rec.Instance, rec.Report, rec.CreatedAt, *rec.FinishedAt))
}

func TestStoredScheduleIsServed(t *testing.T) {
	s, mock := storeServer(t)
	h := s.router()
	rec := storedRecord(t)

	expectGet(mock, rec)
	resp := do(t, h, http.MethodGet, "/schedule/stored-1", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var view struct {
		Status string            `json:"status"`
		Report *scheduler.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &view))
	assert.Equal(t, statusDone, view.Status)
	require.NotNil(t, view.Report)
	assert.Len(t, view.Report.Placements, 1)

	expectGet(mock, rec)
	resp = do(t, h, http.MethodGet, "/schedule/stored-1/export?format=csv", "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "E1")

	mock.ExpectQuery("SELECT (.+) FROM schedules ORDER BY created_at DESC").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "strategy", "reason", "hard", "soft", "created_at", "finished_at"}).
			AddRow(rec.ID, rec.Status, rec.Strategy, rec.Reason, 0, 0, rec.CreatedAt, *rec.FinishedAt))
	resp = do(t, h, http.MethodGet, "/schedule", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Schedules []runSummary `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &list))
	require.Len(t, list.Schedules, 1)
	assert.Equal(t, "stored-1", list.Schedules[0].ID)
	assert.Equal(t, scheduler.ReasonSolved, list.Schedules[0].Reason)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStoredSchedule(t *testing.T) {
	s, mock := storeServer(t)
	h := s.router()
	rec := storedRecord(t)

	expectGet(mock, rec)
	mock.ExpectExec("DELETE FROM schedules").WithArgs("stored-1").WillReturnResult(sqlmock.NewResult(0, 1))
	resp := do(t, h, http.MethodDelete, "/schedule/stored-1", "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	mock.ExpectQuery("SELECT (.+) FROM schedules WHERE id").
		WithArgs("stored-1").
		WillReturnRows(sqlmock.NewRows(scheduleColumns))
	resp = do(t, h, http.MethodGet, "/schedule/stored-1", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
