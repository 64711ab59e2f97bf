package scheduler

import (
	"fmt"
	"strings"
)

// Validate checks a schedule against every hard constraint.
// Returns false and a report listing the offending events for invalid schedules.
func Validate(s *Schedule, ev *Evaluator) (bool, string) {
	inst := s.inst
	b := ev.Breakdown(s)
	var details strings.Builder

	for e, r := range s.assign {
		id := inst.Events[e].ID
		switch {
		case r == unassigned:
			fmt.Fprintf(&details, "- Event %s has no resource\n", id)
		case !inst.Fits(e, r):
			fmt.Fprintf(&details, "- Event %s does not fit resource %s\n", id, inst.Resources[r].ID)
		}
	}
	for e, r := range s.assign {
		for _, q := range inst.Peers(e) {
			if q > e && ev.overlap(e, r, q, s.assign[q]) {
				fmt.Fprintf(&details, "- Conflicting events %s and %s overlap\n", inst.Events[e].ID, inst.Events[q].ID)
			}
		}
	}
	for c, l := range s.load {
		if capacity := inst.Resources[c].Capacity; l > capacity {
			fmt.Fprintf(&details, "- Resource %s holds %d of %d\n", inst.Resources[c].ID, l, capacity)
		}
	}

	var message strings.Builder
	check := func(failed bool, name string) {
		if failed {
			message.WriteString("[FAIL]: " + name + " check.\n")
		} else {
			message.WriteString("[  OK]: " + name + " check.\n")
		}
	}
	check(b.Unassigned > 0, "Event has resource")
	check(b.Incompatible > 0, "Resource compatibility")
	check(b.Conflicts > 0, "Event collision")
	check(b.Overload > 0, "Resource capacity")
	check(b.Rules > 0, fmt.Sprintf("Rule (%d violated)", b.Rules))
	message.WriteString(details.String())

	return b.Cost().Hard == 0, message.String()
}
