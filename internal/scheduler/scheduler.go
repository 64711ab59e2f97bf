package scheduler

import (
	"math/rand"
	"sort"
)

// Fill builds the initial total assignment of s and sets its cached cost.
func Fill(s *Schedule, ev *Evaluator, rng *rand.Rand, kind FillKind) {
	switch kind {
	case FillGreedy:
		fillGreedy(s, ev)
	default:
		s.Randomize(rng)
		s.cost = ev.FullCost(s)
	}
}

// fillGreedy places the most constrained events first, each on the compatible
// resource with the smallest cost increase. Ties keep catalog order.
func fillGreedy(s *Schedule, ev *Evaluator) {
	inst := s.inst
	for e := range s.assign {
		s.remove(e, s.assign[e])
		s.assign[e] = unassigned
	}
	s.cost = ev.FullCost(s)

	order := make([]int, len(inst.Events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		ca, cb := len(inst.Compatible(a)), len(inst.Compatible(b))
		if ca != cb {
			return ca < cb
		}
		return inst.Events[a].Size*inst.Events[a].Duration > inst.Events[b].Size*inst.Events[b].Duration
	})

	for _, e := range order {
		var (
			best  Move
			delta Cost
		)
		for i, r := range inst.Compatible(e) {
			m := Reassign(e, unassigned, r)
			d := ev.DeltaCost(s, m)
			if i == 0 || d.Less(delta) {
				best, delta = m, d
			}
		}
		s.Apply(best, delta)
	}
}
