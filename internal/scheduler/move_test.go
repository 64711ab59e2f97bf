package scheduler

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveInverseRestoresSchedule(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 50; trial++ {
		inst := randomInstance(t, rng)
		ev := NewEvaluator(inst)
		s := filledSchedule(inst, ev, int64(trial))
		orig := s.Clone()

		var m Move
		if trial%2 == 0 {
			m = Swap(0, len(inst.Events)-1)
		} else {
			e := rng.Intn(len(inst.Events))
			m = Reassign(e, s.Resource(e), rng.Intn(len(inst.Resources)))
		}

		d := ev.DeltaCost(s, m)
		s.Apply(m, d)
		inv := m.Inverse()
		s.Apply(inv, ev.DeltaCost(s, inv))

		assert.Equal(t, orig.Assignment(), s.Assignment())
		assert.Equal(t, orig.Cost(), s.Cost())
		assert.Equal(t, orig.load, s.load)
		assert.Equal(t, orig.periodLoad, s.periodLoad)
		for r := range inst.Resources {
			want := append([]int(nil), orig.Occupants(r)...)
			got := append([]int(nil), s.Occupants(r)...)
			sort.Ints(want)
			sort.Ints(got)
			assert.Equal(t, want, got, "occupants of resource %d", r)
		}
	}
}

func TestMoveInverse(t *testing.T) {
	assert.Equal(t, Reassign(3, 5, 1), Reassign(3, 1, 5).Inverse())
	assert.Equal(t, Swap(2, 4), Swap(2, 4).Inverse())
	assert.Equal(t, "reassign(3: 1->5)", Reassign(3, 1, 5).String())
	assert.Equal(t, "swap(2, 4)", Swap(2, 4).String())
}

func TestStaleMovePanics(t *testing.T) {
	inst := twoPeriodInstance(t)
	ev := NewEvaluator(inst)
	s := filledSchedule(inst, ev, 1)
	cur := s.Resource(0)

	assert.Panics(t, func() { ev.DeltaCost(s, Reassign(0, 1-cur, cur)) }, "wrong source resource")
	assert.Panics(t, func() { s.Apply(Reassign(9, 0, 1), Cost{}) }, "unknown event")
	assert.Panics(t, func() { ev.DeltaCost(s, Reassign(0, cur, 7)) }, "unknown resource")
	assert.Panics(t, func() { ev.DeltaCost(s, Swap(1, 1)) }, "self swap")
	assert.Panics(t, func() { s.Apply(Move{}, Cost{}) }, "empty move")
	require.NotPanics(t, func() { ev.DeltaCost(s, Reassign(0, cur, 1-cur)) })
}

func TestScheduleCopyIsIndependent(t *testing.T) {
	inst := twoPeriodInstance(t)
	ev := NewEvaluator(inst)
	s := filledSchedule(inst, ev, 3)
	c := s.Clone()

	e := 0
	m := Reassign(e, s.Resource(e), 1-s.Resource(e))
	s.Apply(m, ev.DeltaCost(s, m))

	assert.NotEqual(t, s.Resource(e), c.Resource(e))
	assert.Equal(t, ev.FullCost(c), c.Cost())
	assert.True(t, c.Complete())
	assert.Len(t, c.Placements(), 3)
}
