package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/pkg/model"
)

// ErrNotFound is returned when no schedule has the requested id.
var ErrNotFound = errors.New("schedule not found")

// Record is one row of the schedules table. Instance and Report hold JSON.
type Record struct {
	ID         string     `db:"id"`
	Status     string     `db:"status"`
	Strategy   string     `db:"strategy"`
	Reason     string     `db:"reason"`
	Hard       int        `db:"hard"`
	Soft       int64      `db:"soft"`
	Instance   []byte     `db:"instance"`
	Report     []byte     `db:"report"`
	CreatedAt  time.Time  `db:"created_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

type instanceJSON struct {
	Events    []model.Event    `json:"events"`
	Resources []model.Resource `json:"resources"`
	Rules     []model.RuleSpec `json:"rules,omitempty"`
	Weights   model.Weights    `json:"weights"`
}

// NewRecord snapshots a finished run.
func NewRecord(status string, inst *model.Instance, report *scheduler.Report, created, finished time.Time) (*Record, error) {
	instance, err := json.Marshal(instanceJSON{
		Events:    inst.Events,
		Resources: inst.Resources,
		Rules:     inst.Rules,
		Weights:   inst.Weights,
	})
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}
	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return &Record{
		ID:         report.RunID,
		Status:     status,
		Strategy:   string(report.Strategy),
		Reason:     string(report.Reason),
		Hard:       report.Cost.Hard,
		Soft:       report.Cost.Soft,
		Instance:   instance,
		Report:     body,
		CreatedAt:  created.UTC(),
		FinishedAt: &finished,
	}, nil
}

// Decode rebuilds the instance and the report of a stored run.
func (r *Record) Decode() (*model.Instance, *scheduler.Report, error) {
	var in instanceJSON
	if err := json.Unmarshal(r.Instance, &in); err != nil {
		return nil, nil, fmt.Errorf("decode instance: %w", err)
	}
	inst, err := model.NewInstance(in.Events, in.Resources, in.Rules, in.Weights)
	if err != nil {
		return nil, nil, err
	}
	if len(r.Report) == 0 {
		return inst, nil, nil
	}
	var report scheduler.Report
	if err := json.Unmarshal(r.Report, &report); err != nil {
		return nil, nil, fmt.Errorf("decode report: %w", err)
	}
	return inst, &report, nil
}

// ScheduleRepository persists finished runs.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Save inserts or replaces a run.
func (r *ScheduleRepository) Save(ctx context.Context, rec *Record) error {
	const query = `INSERT INTO schedules (id, status, strategy, reason, hard, soft, instance, report, created_at, finished_at)
VALUES (:id, :status, :strategy, :reason, :hard, :soft, :instance, :report, :created_at, :finished_at)
ON CONFLICT (id)
DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, hard = EXCLUDED.hard, soft = EXCLUDED.soft,
              report = EXCLUDED.report, finished_at = EXCLUDED.finished_at`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// Get fetches one run including its instance and report.
func (r *ScheduleRepository) Get(ctx context.Context, id string) (*Record, error) {
	const query = `SELECT id, status, strategy, reason, hard, soft, instance, report, created_at, finished_at
FROM schedules WHERE id = $1`
	var rec Record
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &rec, nil
}

// List returns the newest runs without their instance and report bodies.
func (r *ScheduleRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const query = `SELECT id, status, strategy, reason, hard, soft, created_at, finished_at
FROM schedules ORDER BY created_at DESC LIMIT $1`
	var recs []Record
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return recs, nil
}

// Delete removes a run.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
