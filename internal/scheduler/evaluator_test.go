package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhyrak/localsearch/pkg/model"
)

func TestDeltaCostMatchesFullCost(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		inst := randomInstance(t, rng)
		ev := NewEvaluator(inst)
		s := filledSchedule(inst, ev, int64(trial))
		require.Equal(t, ev.FullCost(s), s.Cost())

		for step := 0; step < 40; step++ {
			var m Move
			if rng.Intn(3) == 0 && len(inst.Events) > 1 {
				a := rng.Intn(len(inst.Events))
				b := (a + 1 + rng.Intn(len(inst.Events)-1)) % len(inst.Events)
				m = Swap(a, b)
			} else {
				e := rng.Intn(len(inst.Events))
				m = Reassign(e, s.Resource(e), rng.Intn(len(inst.Resources)))
			}

			before := ev.FullCost(s)
			d := ev.DeltaCost(s, m)
			s.Apply(m, d)
			after := ev.FullCost(s)

			require.Equal(t, after.Sub(before), d, "trial %d step %d move %s", trial, step, m)
			require.Equal(t, after, s.Cost())
		}
	}
}

func TestDeltaCostFromUnassigned(t *testing.T) {
	inst := twoPeriodInstance(t)
	ev := NewEvaluator(inst)
	s := NewSchedule(inst)
	s.cost = ev.FullCost(s)
	assert.Equal(t, Cost{Hard: 3}, s.Cost())

	for e := range inst.Events {
		m := Reassign(e, unassigned, 0)
		before := ev.FullCost(s)
		d := ev.DeltaCost(s, m)
		s.Apply(m, d)
		assert.Equal(t, ev.FullCost(s).Sub(before), d)
	}
	// E1 and E2 conflict in period 0 and three events overload R1.
	assert.Equal(t, Breakdown{Conflicts: 1, Overload: 1}, ev.Breakdown(s))
}

func TestBreakdownCategories(t *testing.T) {
	inst, err := model.NewInstance(
		[]model.Event{
			{ID: "math", Duration: 2, Size: 2, Preferred: []int{1}, Conflicts: []model.EventID{"lab"}},
			{ID: "lab", Duration: 1, Size: 1, Kinds: []string{"lab"}},
			{ID: "art", Duration: 1, Size: 1},
		},
		[]model.Resource{
			{ID: "A0", Period: 0, Location: "A", Kind: "lecture", Capacity: 2},
			{ID: "A1", Period: 1, Location: "A", Kind: "lecture", Capacity: 2},
			{ID: "L1", Period: 1, Location: "L", Kind: "lab", Capacity: 1},
		},
		[]model.RuleSpec{
			{Kind: model.RulePrecedes, Event: "math", Target: "lab"},
			{Kind: model.RuleExclude, Event: "art", Periods: []int{1}},
		},
		model.Weights{Preference: 5, LoadBalance: 10})
	require.NoError(t, err)

	ev := NewEvaluator(inst)
	s := NewSchedule(inst)
	s.cost = ev.FullCost(s)
	// math on A0 covers periods 0 and 1, lab sits on L1, art crowds A1.
	for _, m := range []Move{Reassign(0, unassigned, 0), Reassign(1, unassigned, 2), Reassign(2, unassigned, 1)} {
		s.Apply(m, ev.DeltaCost(s, m))
	}

	b := ev.Breakdown(s)
	assert.Equal(t, 0, b.Unassigned)
	assert.Equal(t, 0, b.Incompatible)
	assert.Equal(t, 1, b.Conflicts, "math [0,2) overlaps lab [1,2)")
	assert.Equal(t, 1, b.Overload, "A1 holds math and art")
	assert.Equal(t, 2, b.Rules, "math ends after lab starts and art sits in period 1")
	assert.Equal(t, int64(5), b.Preference)
	// level = ceil(4/2) = 2; period 1 holds math, lab and art.
	assert.Equal(t, int64(10), b.LoadBalance)
	assert.Equal(t, b.Cost(), s.Cost())

	assert.Equal(t, 3, ev.EventViolations(s, 0), "conflict, overloaded A1 and precedence")
	assert.Equal(t, 2, ev.EventViolations(s, 2))
}

func TestRuleGroups(t *testing.T) {
	inst := twoPeriodInstance(t)
	ev := NewEvaluator(inst)
	s := NewSchedule(inst)
	for e := range inst.Events {
		s.Apply(Reassign(e, unassigned, 0), Cost{})
	}
	v := view{s: s, ev: ev}

	inPeriod1 := func(id model.EventID) model.RuleSpec {
		return model.RuleSpec{Kind: model.RuleRestrict, Event: id, Periods: []int{1}}
	}
	tests := []struct {
		name string
		spec model.RuleSpec
		want int
	}{
		{"restrict violated", inPeriod1("E1"), 1},
		{"exclude violated", model.RuleSpec{Kind: model.RuleExclude, Event: "E1", Periods: []int{0}}, 1},
		{"concurrent start allowed", model.RuleSpec{Kind: model.RulePrecedesConcurrent, Event: "E1", Target: "E2"}, 0},
		{"strict precedence violated", model.RuleSpec{Kind: model.RulePrecedes, Event: "E1", Target: "E2"}, 1},
		{"every sums children", model.RuleSpec{Kind: model.RuleEvery, Children: []model.RuleSpec{inPeriod1("E1"), inPeriod1("E2")}}, 2},
		{"any takes smallest", model.RuleSpec{Kind: model.RuleAny, Children: []model.RuleSpec{
			{Kind: model.RuleEvery, Children: []model.RuleSpec{inPeriod1("E1"), inPeriod1("E2")}},
			inPeriod1("E3"),
		}}, 1},
		{"none counts satisfied", model.RuleSpec{Kind: model.RuleNone, Children: []model.RuleSpec{
			{Kind: model.RulePrecedesConcurrent, Event: "E1", Target: "E2"},
			{Kind: model.RulePrecedesConcurrent, Event: "E2", Target: "E3"},
			inPeriod1("E3"),
		}}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := compileRule(inst, tc.spec)
			assert.Equal(t, tc.want, r.violations(v))
		})
	}
}

func TestRulesIgnoreUnassignedEvents(t *testing.T) {
	inst := twoPeriodInstance(t)
	ev := NewEvaluator(inst)
	s := NewSchedule(inst)
	s.Apply(Reassign(1, unassigned, 0), Cost{})

	r := compileRule(inst, model.RuleSpec{Kind: model.RulePrecedes, Event: "E1", Target: "E2"})
	assert.Equal(t, 0, r.violations(view{s: s, ev: ev}))
}
