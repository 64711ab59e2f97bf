package scheduler

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rhyrak/localsearch/pkg/model"
)

// randomInstance builds a small feasible-to-construct instance with conflicts,
// preferences, multi-period events and every rule kind.
func randomInstance(t *testing.T, rng *rand.Rand) *model.Instance {
	t.Helper()
	periods := 2 + rng.Intn(4)
	locations := []string{"A", "B", "C"}[:1+rng.Intn(3)]
	kinds := []string{"lecture", "lab"}

	var resources []model.Resource
	for p := 0; p < periods; p++ {
		for li, loc := range locations {
			resources = append(resources, model.Resource{
				ID:       model.ResourceID(fmt.Sprintf("%s%d", loc, p)),
				Period:   p,
				Location: loc,
				Kind:     kinds[li%2],
				Capacity: 1 + rng.Intn(3),
			})
		}
	}

	events := make([]model.Event, 3+rng.Intn(8))
	for i := range events {
		events[i] = model.Event{
			ID:       model.EventID(fmt.Sprintf("E%d", i)),
			Duration: 1 + rng.Intn(2),
			Size:     1,
		}
		if rng.Intn(3) == 0 {
			events[i].Preferred = []int{rng.Intn(periods)}
		}
		if rng.Intn(4) == 0 {
			events[i].Kinds = []string{"lecture"}
		}
	}
	for k := 0; k < len(events); k++ {
		a, b := rng.Intn(len(events)), rng.Intn(len(events))
		if a != b {
			events[a].Conflicts = append(events[a].Conflicts, events[b].ID)
		}
	}

	id := func() model.EventID { return events[rng.Intn(len(events))].ID }
	rules := []model.RuleSpec{
		{Kind: model.RulePrecedes, Event: id(), Target: id()},
		{Kind: model.RulePrecedesConcurrent, Event: id(), Target: id()},
		{Kind: model.RuleRestrict, Event: id(), Periods: []int{0}},
		{Kind: model.RuleExclude, Event: id(), Periods: []int{periods - 1}},
		{Kind: model.RuleAny, Children: []model.RuleSpec{
			{Kind: model.RuleRestrict, Event: id(), Periods: []int{1}},
			{Kind: model.RulePrecedes, Event: id(), Target: id()},
		}},
		{Kind: model.RuleNone, Children: []model.RuleSpec{
			{Kind: model.RuleExclude, Event: id(), Periods: []int{0}},
			{Kind: model.RuleEvery, Children: []model.RuleSpec{
				{Kind: model.RuleRestrict, Event: id(), Periods: []int{0, 1}},
				{Kind: model.RulePrecedesConcurrent, Event: id(), Target: id()},
			}},
		}},
	}

	inst, err := model.NewInstance(events, resources, rules, model.Weights{Preference: 3, LoadBalance: 2})
	require.NoError(t, err)
	return inst
}

// twoPeriodInstance has R1 in period 0 and R2 in period 1, both with capacity
// 2, and three events of which E1 and E2 conflict.
func twoPeriodInstance(t *testing.T) *model.Instance {
	t.Helper()
	inst, err := model.NewInstance(
		[]model.Event{
			{ID: "E1", Duration: 1, Size: 1, Conflicts: []model.EventID{"E2"}},
			{ID: "E2", Duration: 1, Size: 1},
			{ID: "E3", Duration: 1, Size: 1},
		},
		[]model.Resource{
			{ID: "R1", Period: 0, Location: "hall", Capacity: 2},
			{ID: "R2", Period: 1, Location: "hall", Capacity: 2},
		},
		nil, model.Weights{})
	require.NoError(t, err)
	return inst
}

// cliqueInstance cannot be solved: three mutually conflicting events share
// two periods.
func cliqueInstance(t *testing.T) *model.Instance {
	t.Helper()
	inst, err := model.NewInstance(
		[]model.Event{
			{ID: "E1", Duration: 1, Size: 1, Conflicts: []model.EventID{"E2", "E3"}},
			{ID: "E2", Duration: 1, Size: 1, Conflicts: []model.EventID{"E3"}},
			{ID: "E3", Duration: 1, Size: 1},
		},
		[]model.Resource{
			{ID: "R1", Period: 0, Location: "hall", Capacity: 5},
			{ID: "R2", Period: 1, Location: "hall", Capacity: 5},
		},
		nil, model.Weights{})
	require.NoError(t, err)
	return inst
}

func testConfiguration(strategy StrategyKind) Configuration {
	cfg := *NewDefaultConfiguration()
	cfg.Strategy = strategy
	cfg.MaxIterations = 1000
	cfg.TimeBudgetMs = -1
	cfg.Seed = 42
	return cfg
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func filledSchedule(inst *model.Instance, ev *Evaluator, seed int64) *Schedule {
	s := NewSchedule(inst)
	Fill(s, ev, rand.New(rand.NewSource(seed)), FillRandom)
	return s
}
