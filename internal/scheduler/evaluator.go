package scheduler

import "github.com/rhyrak/localsearch/pkg/model"

// Breakdown splits a cost into its constraint categories.
type Breakdown struct {
	Unassigned   int   `json:"unassigned"`
	Incompatible int   `json:"incompatible"`
	Conflicts    int   `json:"conflicts"`
	Overload     int   `json:"overload"`
	Rules        int   `json:"rules"`
	Preference   int64 `json:"preference"`
	LoadBalance  int64 `json:"loadBalance"`
}

func (b Breakdown) Cost() Cost {
	return Cost{
		Hard: b.Unassigned + b.Incompatible + b.Conflicts + b.Overload + b.Rules,
		Soft: b.Preference + b.LoadBalance,
	}
}

// Evaluator scores schedules of one instance. It keeps scratch buffers for the
// incremental path, so each run owns its own Evaluator.
type Evaluator struct {
	inst  *model.Instance
	rules *ruleSet

	stamp       int
	eventStamp  []int
	moved       []int
	cellStamp   []int
	cellDelta   []int
	periodStamp []int
	periodDelta []int
	ruleStamp   []int
	cells       []int
	periods     []int
	changes     []change
}

func NewEvaluator(inst *model.Instance) *Evaluator {
	return &Evaluator{
		inst:        inst,
		rules:       compileRules(inst),
		eventStamp:  make([]int, len(inst.Events)),
		moved:       make([]int, len(inst.Events)),
		cellStamp:   make([]int, len(inst.Resources)),
		cellDelta:   make([]int, len(inst.Resources)),
		periodStamp: make([]int, len(inst.Periods())),
		periodDelta: make([]int, len(inst.Periods())),
		ruleStamp:   make([]int, len(inst.Rules)),
	}
}

// view reads start periods either from the schedule as it is or as it would be
// after the changes stamped by the current DeltaCost call.
type view struct {
	s     *Schedule
	ev    *Evaluator
	after bool
}

func (v view) resource(e int) int {
	if v.after && v.ev.eventStamp[e] == v.ev.stamp {
		return v.ev.moved[e]
	}
	return v.s.assign[e]
}

func (v view) start(e int) (int, bool) {
	if e < 0 {
		return 0, false
	}
	r := v.resource(e)
	if r == unassigned {
		return 0, false
	}
	return v.s.inst.Resources[r].Period, true
}

func (v view) duration(e int) int { return v.s.inst.Events[e].Duration }

// FullCost recomputes the cost of s from the assignment alone.
func (ev *Evaluator) FullCost(s *Schedule) Cost {
	return ev.Breakdown(s).Cost()
}

// Breakdown recomputes every category from the assignment, ignoring the
// cached loads of s.
func (ev *Evaluator) Breakdown(s *Schedule) Breakdown {
	inst := ev.inst
	var b Breakdown
	load := make([]int, len(inst.Resources))
	periodLoad := make([]int, len(inst.Periods()))

	for e, r := range s.assign {
		if r == unassigned {
			b.Unassigned++
			continue
		}
		if !inst.Fits(e, r) {
			b.Incompatible++
		}
		b.Preference += ev.preference(e, r)
		for _, c := range inst.Span(e, r) {
			load[c] += inst.Events[e].Size
			periodLoad[inst.CellPeriod(c)]++
		}
		for _, q := range inst.Peers(e) {
			if q > e && ev.overlap(e, r, q, s.assign[q]) {
				b.Conflicts++
			}
		}
	}
	for c, l := range load {
		b.Overload += excess(l, inst.Resources[c].Capacity)
	}
	for _, pl := range periodLoad {
		b.LoadBalance += ev.balance(pl)
	}
	v := view{s: s, ev: ev}
	for i := range ev.rules.rules {
		b.Rules += ev.rules.rules[i].violations(v)
	}
	return b
}

// DeltaCost returns FullCost(s after m) - FullCost(s) without applying m. It
// reads only the events, cells, periods and rules that m touches.
func (ev *Evaluator) DeltaCost(s *Schedule, m Move) Cost {
	inst := ev.inst
	ev.changes = m.appendChanges(s, ev.changes[:0])
	ev.stamp++
	ev.cells = ev.cells[:0]
	ev.periods = ev.periods[:0]
	for _, c := range ev.changes {
		ev.eventStamp[c.event] = ev.stamp
		ev.moved[c.event] = c.to
	}

	var d Cost
	before, after := view{s: s, ev: ev}, view{s: s, ev: ev, after: true}

	for _, c := range ev.changes {
		d.Hard += ev.placementHard(c.event, c.to) - ev.placementHard(c.event, c.from)
		d.Soft += ev.preference(c.event, c.to) - ev.preference(c.event, c.from)

		for _, q := range inst.Peers(c.event) {
			if ev.eventStamp[q] == ev.stamp && q < c.event {
				continue
			}
			if ev.overlap(c.event, c.to, q, after.resource(q)) {
				d.Hard++
			}
			if ev.overlap(c.event, c.from, q, before.resource(q)) {
				d.Hard--
			}
		}

		size := inst.Events[c.event].Size
		ev.touch(c.event, c.from, -size, -1)
		ev.touch(c.event, c.to, size, 1)

		for _, ri := range ev.rules.byEvent[c.event] {
			if ev.ruleStamp[ri] == ev.stamp {
				continue
			}
			ev.ruleStamp[ri] = ev.stamp
			r := &ev.rules.rules[ri]
			d.Hard += r.violations(after) - r.violations(before)
		}
	}

	for _, c := range ev.cells {
		capacity := inst.Resources[c].Capacity
		d.Hard += excess(s.load[c]+ev.cellDelta[c], capacity) - excess(s.load[c], capacity)
	}
	for _, p := range ev.periods {
		d.Soft += ev.balance(s.periodLoad[p]+ev.periodDelta[p]) - ev.balance(s.periodLoad[p])
	}
	return d
}

// touch records the load change of placing (sign > 0) or removing event e on r.
func (ev *Evaluator) touch(e, r, size, sign int) {
	if r == unassigned {
		return
	}
	for _, c := range ev.inst.Span(e, r) {
		if ev.cellStamp[c] != ev.stamp {
			ev.cellStamp[c] = ev.stamp
			ev.cellDelta[c] = 0
			ev.cells = append(ev.cells, c)
		}
		ev.cellDelta[c] += size
		p := ev.inst.CellPeriod(c)
		if ev.periodStamp[p] != ev.stamp {
			ev.periodStamp[p] = ev.stamp
			ev.periodDelta[p] = 0
			ev.periods = append(ev.periods, p)
		}
		ev.periodDelta[p] += sign
	}
}

// EventViolations counts the hard violations event e takes part in. The
// conflict-biased selector ranks events with it.
func (ev *Evaluator) EventViolations(s *Schedule, e int) int {
	inst := ev.inst
	r := s.assign[e]
	n := ev.placementHard(e, r)
	if r == unassigned {
		return n
	}
	for _, q := range inst.Peers(e) {
		if ev.overlap(e, r, q, s.assign[q]) {
			n++
		}
	}
	for _, c := range inst.Span(e, r) {
		if s.load[c] > inst.Resources[c].Capacity {
			n++
		}
	}
	v := view{s: s, ev: ev}
	for _, ri := range ev.rules.byEvent[e] {
		if ev.rules.rules[ri].violations(v) > 0 {
			n++
		}
	}
	return n
}

func (ev *Evaluator) placementHard(e, r int) int {
	if r == unassigned {
		return 1
	}
	if !ev.inst.Fits(e, r) {
		return 1
	}
	return 0
}

func (ev *Evaluator) preference(e, r int) int64 {
	if r == unassigned || ev.inst.Events[e].Prefers(ev.inst.Resources[r].Period) {
		return 0
	}
	return ev.inst.Weights.Preference
}

func (ev *Evaluator) balance(periodLoad int) int64 {
	return ev.inst.Weights.LoadBalance * int64(excess(periodLoad, ev.inst.LoadLevel()))
}

// overlap reports whether e on r and q on rq occupy intersecting periods.
func (ev *Evaluator) overlap(e, r, q, rq int) bool {
	if r == unassigned || rq == unassigned {
		return false
	}
	a := ev.inst.Resources[r].Period
	b := ev.inst.Resources[rq].Period
	return a < b+ev.inst.Events[q].Duration && b < a+ev.inst.Events[e].Duration
}

func excess(v, limit int) int {
	if v > limit {
		return v - limit
	}
	return 0
}
