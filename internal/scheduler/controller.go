package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rhyrak/localsearch/pkg/model"
)

// TerminationReason says why a run stopped.
type TerminationReason string

const (
	ReasonSolved        TerminationReason = "Solved"
	ReasonMaxIterations TerminationReason = "MaxIterations"
	ReasonTimedOut      TerminationReason = "TimedOut"
	ReasonConverged     TerminationReason = "Converged"
	ReasonStuck         TerminationReason = "Stuck"
	ReasonCancelled     TerminationReason = "Cancelled"
)

// Snapshot is an immutable progress report.
type Snapshot struct {
	Iteration   int           `json:"iteration"`
	Best        Cost          `json:"best"`
	Current     Cost          `json:"current"`
	Temperature float64       `json:"temperature,omitempty"`
	State       State         `json:"state"`
	Elapsed     time.Duration `json:"elapsedNs"`
}

// Observer receives snapshots on the search goroutine. It must not block.
type Observer func(Snapshot)

// TraceEntry records one iteration when RecordTrace is set.
type TraceEntry struct {
	Iteration int   `json:"iteration"`
	Move      Move  `json:"move"`
	Delta     Cost  `json:"delta"`
	Accepted  bool  `json:"accepted"`
	Restart   bool  `json:"restart,omitempty"`
	Cost      Cost  `json:"cost"`
	State     State `json:"state"`
}

// Report is the final result of one run. Placements describe the best
// schedule found, in event catalog order.
type Report struct {
	RunID      string            `json:"runId"`
	Strategy   StrategyKind      `json:"strategy"`
	Seed       int64             `json:"seed"`
	Reason     TerminationReason `json:"reason"`
	Iterations int               `json:"iterations"`
	Restarts   int               `json:"restarts"`
	Cost       Cost              `json:"cost"`
	Breakdown  Breakdown         `json:"breakdown"`
	Placements []model.Placement `json:"placements"`
	// ByResource lists the events starting on each occupied resource.
	ByResource map[model.ResourceID][]model.EventID `json:"byResource"`
	Valid      bool                                 `json:"valid"`
	Validation string                               `json:"validation"`
	Elapsed    time.Duration                        `json:"elapsedNs"`
	Trace      []TraceEntry                         `json:"trace,omitempty"`
}

// Assignment returns the best schedule as an event -> resource mapping.
func (r *Report) Assignment() map[model.EventID]model.ResourceID {
	out := make(map[model.EventID]model.ResourceID, len(r.Placements))
	for _, p := range r.Placements {
		out[p.Event] = p.Resource
	}
	return out
}

// RunRecorder is notified of every finished run.
type RunRecorder interface {
	RecordRun(r *Report)
}

// Controller drives one search run over a shared, read-only instance.
type Controller struct {
	inst     *model.Instance
	cfg      Configuration
	logger   *zap.Logger
	recorder RunRecorder
	now      func() time.Time
	runID    string
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r RunRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(c *Controller) { c.runID = id }
}

// WithClock replaces time.Now for elapsed time and the time budget.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController validates cfg before any iteration can run.
func NewController(inst *model.Instance, cfg Configuration, opts ...Option) (*Controller, error) {
	if inst == nil {
		return nil, &model.InvalidInstanceError{Reason: "no instance"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{inst: inst, cfg: cfg, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Configuration() Configuration { return c.cfg }

// Run searches until a termination condition holds and returns the best
// schedule found. Termination is checked before every iteration in the order
// cancelled, timed out, solved, iteration limit, converged, stuck.
func (c *Controller) Run(ctx context.Context, observe Observer) *Report {
	cfg := c.cfg
	start := c.now()
	runID := c.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := c.logger.With(
		zap.String("run_id", runID),
		zap.String("strategy", string(cfg.Strategy)),
		zap.Int64("seed", cfg.Seed),
	)

	strategy, err := NewStrategy(cfg)
	if err != nil {
		panic(fmt.Sprintf("scheduler: %v", err))
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	ev := NewEvaluator(c.inst)
	sc := &SearchContext{
		Rand:      rng,
		Evaluator: ev,
		Neighbors: NewNeighbors(c.inst, ev, cfg),
		Config:    &cfg,
	}
	if cfg.Strategy == SimulatedAnnealing {
		sc.Temperature = cfg.InitialTemperature
	}

	current := NewSchedule(c.inst)
	Fill(current, ev, rng, cfg.InitialFill)
	best := current.Clone()
	log.Info("search started",
		zap.Int("events", len(c.inst.Events)),
		zap.Int("resources", len(c.inst.Resources)),
		zap.String("initial_cost", current.cost.String()),
	)

	budget, limited := cfg.TimeBudget()
	state := Exploring
	iteration, restarts := 0, 0
	var trace []TraceEntry
	var reason TerminationReason

	snapshot := func(state State) Snapshot {
		return Snapshot{
			Iteration:   iteration,
			Best:        best.cost,
			Current:     current.cost,
			Temperature: sc.Temperature,
			State:       state,
			Elapsed:     c.now().Sub(start),
		}
	}

	for {
		switch {
		case ctx.Err() != nil:
			reason = ReasonCancelled
		case limited && c.now().Sub(start) >= budget:
			reason = ReasonTimedOut
		case best.cost.Hard == 0 && best.cost.Soft <= cfg.TargetPenalty:
			reason = ReasonSolved
		case iteration >= cfg.MaxIterations:
			reason = ReasonMaxIterations
		case state == Converged:
			reason = ReasonConverged
		case state == Stuck:
			reason = ReasonStuck
		}
		if reason != "" {
			break
		}

		iteration++
		sc.Iteration = iteration
		d := strategy.ProposeAndDecide(current, sc)
		switch {
		case d.Restart:
			restarts++
			current.Randomize(rng)
			current.cost = ev.FullCost(current)
			log.Debug("restarted", zap.Int("iteration", iteration), zap.String("cost", current.cost.String()))
		case d.Accepted:
			current.Apply(d.Move, d.Delta)
			if cfg.VerifyDelta {
				if full := ev.FullCost(current); full != current.cost {
					panic(fmt.Sprintf("scheduler: delta mismatch after %s: cached %s, full %s", d.Move, current.cost, full))
				}
			}
		}
		if current.cost.Less(best.cost) {
			best.CopyFrom(current)
		}
		state = d.State

		if cfg.RecordTrace {
			trace = append(trace, TraceEntry{
				Iteration: iteration,
				Move:      d.Move,
				Delta:     d.Delta,
				Accepted:  d.Accepted,
				Restart:   d.Restart,
				Cost:      current.cost,
				State:     d.State,
			})
		}
		if observe != nil && cfg.ProgressEvery > 0 && iteration%cfg.ProgressEvery == 0 {
			observe(snapshot(state))
		}
	}

	final := state
	if reason == ReasonTimedOut {
		final = TimedOut
	}
	if observe != nil {
		observe(snapshot(final))
	}

	report := &Report{
		RunID:      runID,
		Strategy:   cfg.Strategy,
		Seed:       cfg.Seed,
		Reason:     reason,
		Iterations: iteration,
		Restarts:   restarts,
		Cost:       best.cost,
		Breakdown:  ev.Breakdown(best),
		Placements: best.Placements(),
		ByResource: best.ByResource(),
		Elapsed:    c.now().Sub(start),
		Trace:      trace,
	}
	report.Valid, report.Validation = Validate(best, ev)
	log.Info("search finished",
		zap.String("reason", string(reason)),
		zap.Int("iterations", iteration),
		zap.Int("restarts", restarts),
		zap.Int("hard", best.cost.Hard),
		zap.Int64("soft", best.cost.Soft),
		zap.Duration("elapsed", report.Elapsed),
	)
	if c.recorder != nil {
		c.recorder.RecordRun(report)
	}
	return report
}

const snapshotBuffer = 16

// Handle is a run started in the background.
type Handle struct {
	snapshots chan Snapshot
	done      chan struct{}
	cancel    context.CancelFunc
	report    *Report
}

// Start runs the search on its own goroutine. Snapshots are delivered on a
// buffered channel; when the reader falls behind the oldest pending snapshot
// is dropped so the search never blocks.
func (c *Controller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		snapshots: make(chan Snapshot, snapshotBuffer),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	go func() {
		defer close(h.done)
		defer cancel()
		report := c.Run(ctx, h.publish)
		h.report = report
		close(h.snapshots)
	}()
	return h
}

func (h *Handle) publish(s Snapshot) {
	for {
		select {
		case h.snapshots <- s:
			return
		default:
		}
		select {
		case <-h.snapshots:
		default:
		}
	}
}

// Snapshots is closed once the run has finished.
func (h *Handle) Snapshots() <-chan Snapshot { return h.snapshots }

// Cancel asks the run to stop at its next termination check.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed when the report is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run has finished and returns its report.
func (h *Handle) Wait() *Report {
	<-h.done
	return h.report
}
