package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/pkg/model"
)

func newScheduleRepoMock(t *testing.T) (*ScheduleRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewScheduleRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func testRecord(t *testing.T) *Record {
	t.Helper()
	inst, err := model.NewInstance(
		[]model.Event{{ID: "E1", Name: "Algebra", Duration: 1, Size: 1, Conflicts: []model.EventID{"E2"}}, {ID: "E2", Duration: 1, Size: 1}},
		[]model.Resource{{ID: "R1", Period: 0, Location: "hall", Capacity: 2}, {ID: "R2", Period: 1, Location: "hall", Capacity: 2}},
		nil, model.Weights{Preference: 2})
	require.NoError(t, err)
	report := &scheduler.Report{
		RunID:    "run-1",
		Strategy: scheduler.HillClimbing,
		Reason:   scheduler.ReasonSolved,
		Cost:     scheduler.Cost{Soft: 4},
		Placements: []model.Placement{
			{Event: "E1", Resource: "R1", Period: 0, Location: "hall", Duration: 1},
			{Event: "E2", Resource: "R2", Period: 1, Location: "hall", Duration: 1},
		},
	}
	created := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	rec, err := NewRecord("done", inst, report, created, created.Add(time.Second))
	require.NoError(t, err)
	return rec
}

func TestRecordRoundTrip(t *testing.T) {
	rec := testRecord(t)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, "HillClimbing", rec.Strategy)
	assert.Equal(t, "Solved", rec.Reason)
	assert.Equal(t, int64(4), rec.Soft)

	inst, report, err := rec.Decode()
	require.NoError(t, err)
	assert.Len(t, inst.Events, 2)
	assert.Equal(t, []int{1}, inst.Peers(0))
	assert.Equal(t, int64(2), inst.Weights.Preference)
	assert.Equal(t, scheduler.ReasonSolved, report.Reason)
	assert.Equal(t, model.ResourceID("R2"), report.Assignment()["E2"])
}

func TestScheduleRepositorySave(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	rec := testRecord(t)
	mock.ExpectExec("INSERT INTO schedules").
		WithArgs("run-1", "done", "HillClimbing", "Solved", 0, int64(4), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryGet(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	rec := testRecord(t)
	rows := sqlmock.NewRows([]string{"id", "status", "strategy", "reason", "hard", "soft", "instance", "report", "created_at", "finished_at"}).
		AddRow(rec.ID, rec.Status, rec.Strategy, rec.Reason, rec.Hard, rec.Soft, rec.Instance, rec.Report, rec.CreatedAt, *rec.FinishedAt)
	mock.ExpectQuery("SELECT (.+) FROM schedules WHERE id").
		WithArgs("run-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	_, report, err := got.Decode()
	require.NoError(t, err)
	assert.Len(t, report.Placements, 2)

	mock.ExpectQuery("SELECT (.+) FROM schedules WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScheduleRepositoryListAndDelete(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	created := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "status", "strategy", "reason", "hard", "soft", "created_at", "finished_at"}).
		AddRow("run-2", "done", "SimulatedAnnealing", "Converged", 0, 7, created.Add(time.Minute), nil).
		AddRow("run-1", "done", "HillClimbing", "Solved", 0, 4, created, created)
	mock.ExpectQuery("SELECT (.+) FROM schedules ORDER BY created_at DESC").
		WithArgs(100).
		WillReturnRows(rows)

	recs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "run-2", recs[0].ID)
	assert.Nil(t, recs[0].FinishedAt)

	mock.ExpectExec("DELETE FROM schedules").WithArgs("run-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "run-1"))
	mock.ExpectExec("DELETE FROM schedules").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "gone"), ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
