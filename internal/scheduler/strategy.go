package scheduler

import (
	"fmt"
	"math"
	"math/rand"
)

// State is the search state a strategy reports after each iteration.
type State string

const (
	Exploring State = "Exploring"
	Accepting State = "Accepting"
	Stuck     State = "Stuck"
	Converged State = "Converged"
	TimedOut  State = "TimedOut"
)

// Decision is the outcome of one strategy step. The controller applies an
// accepted Move with Delta, or re-randomizes the schedule when Restart is set.
type Decision struct {
	Move     Move
	Proposed bool
	Delta    Cost
	Accepted bool
	Restart  bool
	State    State
}

// SearchContext carries the per-run collaborators a strategy works with.
type SearchContext struct {
	Iteration   int
	Rand        *rand.Rand
	Evaluator   *Evaluator
	Neighbors   *Neighbors
	Config      *Configuration
	Temperature float64
}

// Strategy decides which move to take next. The set of variants is closed.
type Strategy interface {
	Kind() StrategyKind
	ProposeAndDecide(s *Schedule, sc *SearchContext) Decision
	strategy()
}

// NewStrategy builds the variant named by cfg.Strategy.
func NewStrategy(cfg Configuration) (Strategy, error) {
	switch cfg.Strategy {
	case HillClimbing:
		return &HillClimber{}, nil
	case SimulatedAnnealing:
		return &Annealer{}, nil
	case RandomRestart:
		return &Restarter{}, nil
	default:
		return nil, &ConfigurationError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", cfg.Strategy)}
	}
}

// HillClimber takes the best neighbor when it improves the schedule. With
// AcceptPlateau it also takes equal-cost moves, at most PlateauLimit in a row.
type HillClimber struct {
	plateauRun int
}

func (*HillClimber) Kind() StrategyKind { return HillClimbing }
func (*HillClimber) strategy()          {}

func (h *HillClimber) ProposeAndDecide(s *Schedule, sc *SearchContext) Decision {
	cfg := sc.Config
	var (
		best  Move
		delta Cost
		found bool
	)
	if cfg.SampleSize > 0 {
		best, delta, found = h.sample(s, sc)
		if found && !h.acceptable(delta, cfg) {
			found = false
		}
	}
	if !found {
		best, delta, found = h.scan(s, sc)
	}
	if !found || !h.acceptable(delta, cfg) {
		return Decision{Move: best, Proposed: found, Delta: delta, State: Stuck}
	}
	if delta.IsZero() {
		h.plateauRun++
	} else {
		h.plateauRun = 0
	}
	return Decision{Move: best, Proposed: true, Delta: delta, Accepted: true, State: Accepting}
}

func (h *HillClimber) acceptable(d Cost, cfg *Configuration) bool {
	if d.Improves() {
		return true
	}
	return cfg.AcceptPlateau && d.IsZero() && h.plateauRun < cfg.PlateauLimit
}

// scan is steepest ascent over the full neighborhood. Equal-best moves are
// chosen uniformly by reservoir sampling.
func (h *HillClimber) scan(s *Schedule, sc *SearchContext) (Move, Cost, bool) {
	var (
		best  Move
		delta Cost
		ties  int
	)
	sc.Neighbors.Scan(s, func(m Move) bool {
		d := sc.Evaluator.DeltaCost(s, m)
		switch {
		case ties == 0 || d.Less(delta):
			best, delta, ties = m, d, 1
		case d == delta:
			ties++
			if sc.Rand.Intn(ties) == 0 {
				best = m
			}
		}
		return true
	})
	return best, delta, ties > 0
}

func (h *HillClimber) sample(s *Schedule, sc *SearchContext) (Move, Cost, bool) {
	var (
		best  Move
		delta Cost
		found bool
	)
	for i := 0; i < sc.Config.SampleSize; i++ {
		m, ok := sc.Neighbors.Propose(s, sc.Rand)
		if !ok {
			break
		}
		d := sc.Evaluator.DeltaCost(s, m)
		if !found || d.Less(delta) {
			best, delta, found = m, d, true
		}
	}
	return best, delta, found
}

// Annealer always accepts moves that do not worsen the cost in lexicographic
// order. A worsening move is accepted with probability exp(-p/T), p being its
// Penalty under HardWeight. T decays geometrically down to MinTemperature.
type Annealer struct {
	started bool
}

func (*Annealer) Kind() StrategyKind { return SimulatedAnnealing }
func (*Annealer) strategy()          {}

func (a *Annealer) ProposeAndDecide(s *Schedule, sc *SearchContext) Decision {
	cfg := sc.Config
	if !a.started {
		a.started = true
		sc.Temperature = cfg.InitialTemperature
	}
	m, ok := sc.Neighbors.Propose(s, sc.Rand)
	if !ok {
		return Decision{State: Stuck}
	}
	d := sc.Evaluator.DeltaCost(s, m)
	accept := d.Improves() || d.IsZero()
	if !accept {
		accept = sc.Rand.Float64() < math.Exp(-d.Penalty(cfg.HardWeight)/sc.Temperature)
	}

	sc.Temperature *= cfg.CoolingRate
	if sc.Temperature < cfg.MinTemperature {
		sc.Temperature = cfg.MinTemperature
	}

	state := Exploring
	if accept {
		state = Accepting
	}
	hard := s.cost.Hard
	if accept {
		hard += d.Hard
	}
	if sc.Temperature <= cfg.MinTemperature && hard == 0 {
		state = Converged
	}
	return Decision{Move: m, Proposed: true, Delta: d, Accepted: accept, State: state}
}

// Restarter runs a hill climber and re-randomizes the assignment each time
// the climber is stuck, up to MaxRestarts times.
type Restarter struct {
	climber  HillClimber
	restarts int
}

func (*Restarter) Kind() StrategyKind { return RandomRestart }
func (*Restarter) strategy()          {}

func (r *Restarter) ProposeAndDecide(s *Schedule, sc *SearchContext) Decision {
	d := r.climber.ProposeAndDecide(s, sc)
	if d.State != Stuck || r.restarts >= sc.Config.MaxRestarts {
		return d
	}
	r.restarts++
	r.climber.plateauRun = 0
	return Decision{Move: d.Move, Proposed: d.Proposed, Delta: d.Delta, Restart: true, State: Exploring}
}

// Restarts returns how many times the assignment was re-randomized.
func (r *Restarter) Restarts() int { return r.restarts }
