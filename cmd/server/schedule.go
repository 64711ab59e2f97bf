package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/internal/store"
	"github.com/rhyrak/localsearch/pkg/model"
)

const (
	statusRunning = "running"
	statusDone    = "done"

	persistTimeout = 5 * time.Second
)

// run is one background search and the latest state it reported.
type run struct {
	id       string
	inst     *model.Instance
	strategy scheduler.StrategyKind
	created  time.Time
	handle   *scheduler.Handle
	// done is closed once report is set.
	done chan struct{}

	mu     sync.RWMutex
	latest *scheduler.Snapshot
	report *scheduler.Report
}

type runSummary struct {
	ID       string                      `json:"id"`
	Status   string                      `json:"status"`
	Reason   scheduler.TerminationReason `json:"reason,omitempty"`
	Strategy scheduler.StrategyKind      `json:"strategy"`
	Created  time.Time                   `json:"created"`
}

type runView struct {
	runSummary
	Progress *scheduler.Snapshot `json:"progress,omitempty"`
	Report   *scheduler.Report   `json:"report,omitempty"`
}

// watch mirrors snapshots until the run ends, then persists the report.
func (s *server) watch(r *run) {
	for snap := range r.handle.Snapshots() {
		snap := snap
		r.mu.Lock()
		r.latest = &snap
		r.mu.Unlock()
	}
	report := r.handle.Wait()
	s.metrics.RunFinished()
	s.persist(r, report)
	r.mu.Lock()
	r.report = report
	r.mu.Unlock()
	close(r.done)
	s.log.Info("run completed", zap.String("run_id", r.id), zap.String("reason", string(report.Reason)))
}

func (s *server) persist(r *run, report *scheduler.Report) {
	if s.store == nil {
		return
	}
	rec, err := store.NewRecord(statusDone, r.inst, report, r.created, time.Now())
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		err = s.store.Save(ctx, rec)
	}
	if err != nil {
		s.log.Error("failed to persist run", zap.String("run_id", r.id), zap.Error(err))
	}
}

func (r *run) finished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report != nil
}

func (r *run) summary() runSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summaryLocked()
}

func (r *run) summaryLocked() runSummary {
	sum := runSummary{ID: r.id, Status: statusRunning, Strategy: r.strategy, Created: r.created}
	if r.report != nil {
		sum.Status = statusDone
		sum.Reason = r.report.Reason
	}
	return sum
}

func (r *run) view() runView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := runView{runSummary: r.summaryLocked()}
	if r.report != nil {
		v.Report = r.report
		return v
	}
	v.Progress = r.latest
	return v
}

// wait blocks until the run has a report.
func (r *run) wait() *scheduler.Report {
	<-r.done
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.report
}

// registry keeps at most limit runs in memory. When full, the oldest finished
// run is evicted; if every run is still in progress new runs are refused.
type registry struct {
	mu    sync.Mutex
	runs  map[string]*run
	order []string
	limit int
}

func newRegistry(limit int) *registry {
	return &registry{runs: make(map[string]*run), limit: limit}
}

func (g *registry) get(id string) (*run, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.runs[id]
	return r, ok
}

func (g *registry) list() []runSummary {
	g.mu.Lock()
	runs := make([]*run, 0, len(g.order))
	for _, id := range g.order {
		runs = append(runs, g.runs[id])
	}
	g.mu.Unlock()

	out := make([]runSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.summary())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

func (g *registry) remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.runs, id)
	for i, o := range g.order {
		if o == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}

// reserve makes room for one more run and reports whether it succeeded.
func (g *registry) reserve() bool {
	if g.limit <= 0 || len(g.order) < g.limit {
		return true
	}
	for i, id := range g.order {
		if g.runs[id].finished() {
			delete(g.runs, id)
			g.order = append(g.order[:i], g.order[i+1:]...)
			return true
		}
	}
	return false
}

// start launches a search for inst. It returns errTooManyRuns when the
// registry is full of unfinished runs.
func (s *server) start(inst *model.Instance, cfg scheduler.Configuration) (*run, error) {
	id := uuid.NewString()
	controller, err := scheduler.NewController(inst, cfg,
		scheduler.WithLogger(s.log),
		scheduler.WithRecorder(s.metrics),
		scheduler.WithRunID(id),
	)
	if err != nil {
		return nil, err
	}

	s.runs.mu.Lock()
	defer s.runs.mu.Unlock()
	if !s.runs.reserve() {
		return nil, errTooManyRuns
	}

	r := &run{id: id, inst: inst, strategy: cfg.Strategy, created: time.Now(), done: make(chan struct{})}
	r.handle = controller.Start(context.Background())
	s.runs.runs[id] = r
	s.runs.order = append(s.runs.order, id)
	s.metrics.RunStarted()
	go s.watch(r)
	return r, nil
}

// cancelAll stops every unfinished run and waits for the reports.
func (s *server) cancelAll() {
	s.runs.mu.Lock()
	runs := make([]*run, 0, len(s.runs.runs))
	for _, r := range s.runs.runs {
		runs = append(runs, r)
	}
	s.runs.mu.Unlock()

	for _, r := range runs {
		r.handle.Cancel()
	}
	for _, r := range runs {
		r.wait()
	}
}

// find looks a run up in memory, then in the store. Stored runs come back
// finished and without a handle.
func (s *server) find(ctx context.Context, id string) (*run, error) {
	if r, ok := s.runs.get(id); ok {
		return r, nil
	}
	if s.store == nil {
		return nil, store.ErrNotFound
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inst, report, err := rec.Decode()
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	close(done)
	return &run{
		id:       rec.ID,
		inst:     inst,
		strategy: scheduler.StrategyKind(rec.Strategy),
		created:  rec.CreatedAt,
		done:     done,
		report:   report,
	}, nil
}

// history lists stored runs that are no longer held in memory.
func (s *server) history(ctx context.Context, live []runSummary) []runSummary {
	if s.store == nil {
		return nil
	}
	recs, err := s.store.List(ctx, s.cfg.Server.MaxRuns*10)
	if err != nil {
		s.log.Warn("failed to list stored runs", zap.Error(err))
		return nil
	}
	held := make(map[string]bool, len(live))
	for _, l := range live {
		held[l.ID] = true
	}
	var out []runSummary
	for _, rec := range recs {
		if held[rec.ID] {
			continue
		}
		out = append(out, runSummary{
			ID:       rec.ID,
			Status:   rec.Status,
			Reason:   scheduler.TerminationReason(rec.Reason),
			Strategy: scheduler.StrategyKind(rec.Strategy),
			Created:  rec.CreatedAt,
		})
	}
	return out
}
