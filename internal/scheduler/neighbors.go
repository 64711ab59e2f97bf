package scheduler

import (
	"math/rand"
	"sort"

	"github.com/rhyrak/localsearch/pkg/model"
)

const proposalAttempts = 16

// Neighbors generates candidate moves for a schedule.
type Neighbors struct {
	inst       *model.Instance
	ev         *Evaluator
	swapRate   float64
	bias       float64
	tournament int
}

func NewNeighbors(inst *model.Instance, ev *Evaluator, cfg Configuration) *Neighbors {
	tournament := cfg.TournamentSize
	if tournament < 1 {
		tournament = 1
	}
	return &Neighbors{
		inst:       inst,
		ev:         ev,
		swapRate:   cfg.SwapRate,
		bias:       cfg.ConflictBias,
		tournament: tournament,
	}
}

// Propose draws one random move. It returns false when no event can be moved,
// which happens only when every event is pinned to a single resource and no
// two events sit on different resources.
func (n *Neighbors) Propose(s *Schedule, rng *rand.Rand) (Move, bool) {
	for attempt := 0; attempt < proposalAttempts; attempt++ {
		if rng.Float64() < n.swapRate {
			if m, ok := n.proposeSwap(s, rng); ok {
				return m, true
			}
			continue
		}
		if m, ok := n.proposeReassign(s, rng); ok {
			return m, true
		}
	}
	return Move{}, false
}

func (n *Neighbors) proposeReassign(s *Schedule, rng *rand.Rand) (Move, bool) {
	e := n.pickEvent(s, rng)
	compat := n.inst.Compatible(e)
	cur := s.assign[e]
	at := sort.SearchInts(compat, cur)
	if at < len(compat) && compat[at] == cur {
		if len(compat) == 1 {
			return Move{}, false
		}
		k := rng.Intn(len(compat) - 1)
		if k >= at {
			k++
		}
		return Reassign(e, cur, compat[k]), true
	}
	return Reassign(e, cur, compat[rng.Intn(len(compat))]), true
}

func (n *Neighbors) proposeSwap(s *Schedule, rng *rand.Rand) (Move, bool) {
	if len(s.assign) < 2 {
		return Move{}, false
	}
	a := n.pickEvent(s, rng)
	b := rng.Intn(len(s.assign) - 1)
	if b >= a {
		b++
	}
	if s.assign[a] == unassigned || s.assign[b] == unassigned || s.assign[a] == s.assign[b] {
		return Move{}, false
	}
	return Swap(a, b), true
}

// pickEvent returns a uniform event or, with probability bias, the most
// violated of a small tournament.
func (n *Neighbors) pickEvent(s *Schedule, rng *rand.Rand) int {
	count := len(s.assign)
	if n.bias <= 0 || rng.Float64() >= n.bias {
		return rng.Intn(count)
	}
	best, bestV := -1, -1
	for k := 0; k < n.tournament; k++ {
		e := rng.Intn(count)
		if v := n.ev.EventViolations(s, e); v > bestV {
			best, bestV = e, v
		}
	}
	return best
}

// Scan enumerates the whole neighborhood: every reassignment to another
// compatible resource, then every swap of two events on different resources.
// It stops early when fn returns false.
func (n *Neighbors) Scan(s *Schedule, fn func(Move) bool) {
	for e, cur := range s.assign {
		for _, r := range n.inst.Compatible(e) {
			if r == cur {
				continue
			}
			if !fn(Reassign(e, cur, r)) {
				return
			}
		}
	}
	for a := range s.assign {
		if s.assign[a] == unassigned {
			continue
		}
		for b := a + 1; b < len(s.assign); b++ {
			if s.assign[b] == unassigned || s.assign[a] == s.assign[b] {
				continue
			}
			if !fn(Swap(a, b)) {
				return
			}
		}
	}
}
