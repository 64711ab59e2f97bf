package scheduler

import (
	"math/rand"
	"sort"

	"github.com/rhyrak/localsearch/pkg/model"
)

const unassigned = -1

// Schedule is the mutable search state of one run: the assignment, the reverse
// index resource -> occupying events, per-cell and per-period loads, and the
// cached cost. It has a single owner and is never shared between runs.
type Schedule struct {
	inst *model.Instance

	assign     []int
	occupants  [][]int
	load       []int
	periodLoad []int
	cost       Cost

	changes []change
}

// NewSchedule returns a schedule with every event unassigned.
func NewSchedule(inst *model.Instance) *Schedule {
	s := &Schedule{
		inst:       inst,
		assign:     make([]int, len(inst.Events)),
		occupants:  make([][]int, len(inst.Resources)),
		load:       make([]int, len(inst.Resources)),
		periodLoad: make([]int, len(inst.Periods())),
	}
	for i := range s.assign {
		s.assign[i] = unassigned
	}
	return s
}

func (s *Schedule) Instance() *model.Instance { return s.inst }

// Cost returns the cached cost. The owner keeps it in step with the evaluator.
func (s *Schedule) Cost() Cost { return s.cost }

// Resource returns the resource event e starts on, or -1.
func (s *Schedule) Resource(e int) int { return s.assign[e] }

// Occupants lists the events covering resource cell r.
func (s *Schedule) Occupants(r int) []int { return s.occupants[r] }

// Load is the summed size of the events covering resource cell r.
func (s *Schedule) Load(r int) int { return s.load[r] }

// Complete reports whether every event has a resource.
func (s *Schedule) Complete() bool {
	for _, r := range s.assign {
		if r == unassigned {
			return false
		}
	}
	return true
}

// Assignment returns a copy of the event -> resource mapping.
func (s *Schedule) Assignment() []int {
	out := make([]int, len(s.assign))
	copy(out, s.assign)
	return out
}

// Apply performs m and adds delta to the cached cost. The reverse index and
// loads are updated in the same step.
func (s *Schedule) Apply(m Move, delta Cost) {
	s.changes = m.appendChanges(s, s.changes[:0])
	for _, c := range s.changes {
		s.remove(c.event, c.from)
	}
	for _, c := range s.changes {
		s.place(c.event, c.to)
		s.assign[c.event] = c.to
	}
	s.cost = s.cost.Add(delta)
}

func (s *Schedule) place(e, r int) {
	if r == unassigned {
		return
	}
	size := s.inst.Events[e].Size
	for _, c := range s.inst.Span(e, r) {
		s.occupants[c] = append(s.occupants[c], e)
		s.load[c] += size
		s.periodLoad[s.inst.CellPeriod(c)]++
	}
}

func (s *Schedule) remove(e, r int) {
	if r == unassigned {
		return
	}
	size := s.inst.Events[e].Size
	for _, c := range s.inst.Span(e, r) {
		occ := s.occupants[c]
		for i, o := range occ {
			if o == e {
				occ[i] = occ[len(occ)-1]
				s.occupants[c] = occ[:len(occ)-1]
				break
			}
		}
		s.load[c] -= size
		s.periodLoad[s.inst.CellPeriod(c)]--
	}
}

// Randomize places every event on a uniformly drawn compatible resource.
// The cached cost is left for the caller to recompute.
func (s *Schedule) Randomize(rng *rand.Rand) {
	for e := range s.assign {
		compat := s.inst.Compatible(e)
		to := compat[rng.Intn(len(compat))]
		s.remove(e, s.assign[e])
		s.place(e, to)
		s.assign[e] = to
	}
}

// CopyFrom makes s an exact copy of o, reusing s's buffers.
func (s *Schedule) CopyFrom(o *Schedule) {
	s.inst = o.inst
	s.assign = append(s.assign[:0], o.assign...)
	s.load = append(s.load[:0], o.load...)
	s.periodLoad = append(s.periodLoad[:0], o.periodLoad...)
	if len(s.occupants) != len(o.occupants) {
		s.occupants = make([][]int, len(o.occupants))
	}
	for i := range o.occupants {
		s.occupants[i] = append(s.occupants[i][:0], o.occupants[i]...)
	}
	s.cost = o.cost
}

func (s *Schedule) Clone() *Schedule {
	c := &Schedule{}
	c.CopyFrom(s)
	return c
}

// Placements lists the assigned events in catalog order.
func (s *Schedule) Placements() []model.Placement {
	out := make([]model.Placement, 0, len(s.assign))
	for e, r := range s.assign {
		if r == unassigned {
			continue
		}
		ev := s.inst.Events[e]
		res := s.inst.Resources[r]
		out = append(out, model.Placement{
			Event:    ev.ID,
			Resource: res.ID,
			Period:   res.Period,
			Location: res.Location,
			Duration: ev.Duration,
		})
	}
	return out
}

// ByResource groups the assigned event IDs by the resource they start on.
func (s *Schedule) ByResource() map[model.ResourceID][]model.EventID {
	out := make(map[model.ResourceID][]model.EventID)
	for e, r := range s.assign {
		if r == unassigned {
			continue
		}
		id := s.inst.Resources[r].ID
		out[id] = append(out[id], s.inst.Events[e].ID)
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}
