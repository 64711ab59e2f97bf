package model

import (
	"fmt"
	"sort"
)

// InvalidInstanceError reports a structurally unsatisfiable problem instance.
type InvalidInstanceError struct {
	Reason string
	Event  EventID
}

func (e *InvalidInstanceError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("invalid instance: event %s: %s", e.Event, e.Reason)
	}
	return "invalid instance: " + e.Reason
}

func invalid(event EventID, format string, args ...any) error {
	return &InvalidInstanceError{Event: event, Reason: fmt.Sprintf(format, args...)}
}

// Instance is the read-only catalog of events, resources and rules for one
// problem. It is safe to share between concurrent searches.
type Instance struct {
	Events    []Event
	Resources []Resource
	Rules     []RuleSpec
	Weights   Weights

	eventIndex    map[EventID]int
	resourceIndex map[ResourceID]int
	cells         map[cellKey]int
	periods       []int
	periodIndex   map[int]int
	cellPeriod    []int
	peers         [][]int
	compatible    [][]int
	spans         [][][]int
	level         int
}

// NewInstance validates the catalogs and builds the lookup indexes.
func NewInstance(events []Event, resources []Resource, rules []RuleSpec, weights Weights) (*Instance, error) {
	if len(events) == 0 {
		return nil, invalid("", "event catalog is empty")
	}
	if len(resources) == 0 {
		return nil, invalid("", "resource catalog is empty")
	}
	if weights.Preference < 0 || weights.LoadBalance < 0 {
		return nil, invalid("", "soft weights must be >= 0")
	}

	inst := &Instance{
		Events:        events,
		Resources:     resources,
		Rules:         rules,
		Weights:       weights,
		eventIndex:    make(map[EventID]int, len(events)),
		resourceIndex: make(map[ResourceID]int, len(resources)),
		cells:         make(map[cellKey]int, len(resources)),
		periodIndex:   make(map[int]int),
	}

	for i, r := range resources {
		if r.ID == "" {
			return nil, invalid("", "resource %d has an empty id", i)
		}
		if _, dup := inst.resourceIndex[r.ID]; dup {
			return nil, invalid("", "duplicate resource id %s", r.ID)
		}
		if r.Capacity <= 0 {
			return nil, invalid("", "resource %s capacity must be > 0 (got %d)", r.ID, r.Capacity)
		}
		key := cellKey{location: r.Location, period: r.Period}
		if other, dup := inst.cells[key]; dup {
			return nil, invalid("", "resources %s and %s share period %d at %q", resources[other].ID, r.ID, r.Period, r.Location)
		}
		inst.resourceIndex[r.ID] = i
		inst.cells[key] = i
		if _, seen := inst.periodIndex[r.Period]; !seen {
			inst.periodIndex[r.Period] = 0
			inst.periods = append(inst.periods, r.Period)
		}
	}
	sort.Ints(inst.periods)
	for i, p := range inst.periods {
		inst.periodIndex[p] = i
	}
	inst.cellPeriod = make([]int, len(resources))
	for i, r := range resources {
		inst.cellPeriod[i] = inst.periodIndex[r.Period]
	}

	totalDuration := 0
	for i, e := range events {
		if e.ID == "" {
			return nil, invalid("", "event %d has an empty id", i)
		}
		if _, dup := inst.eventIndex[e.ID]; dup {
			return nil, invalid(e.ID, "duplicate event id")
		}
		if e.Duration <= 0 {
			return nil, invalid(e.ID, "duration must be > 0 (got %d)", e.Duration)
		}
		if e.Size <= 0 {
			return nil, invalid(e.ID, "size must be > 0 (got %d)", e.Size)
		}
		inst.eventIndex[e.ID] = i
		totalDuration += e.Duration
	}

	inst.peers = make([][]int, len(events))
	for i, e := range events {
		for _, peer := range e.Conflicts {
			j, ok := inst.eventIndex[peer]
			if !ok {
				return nil, invalid(e.ID, "unknown conflicting event %s", peer)
			}
			if j == i {
				continue
			}
			inst.addPeer(i, j)
			inst.addPeer(j, i)
		}
	}
	for i := range inst.peers {
		sort.Ints(inst.peers[i])
	}

	if err := inst.checkRules(rules); err != nil {
		return nil, err
	}

	inst.spans = make([][][]int, len(events))
	inst.compatible = make([][]int, len(events))
	for i := range events {
		inst.spans[i] = make([][]int, len(resources))
		for r := range resources {
			inst.spans[i][r] = inst.buildSpan(i, r)
			if inst.fits(i, r) {
				inst.compatible[i] = append(inst.compatible[i], r)
			}
		}
		if len(inst.compatible[i]) == 0 {
			return nil, invalid(events[i].ID, "no compatible resource")
		}
	}

	inst.level = (totalDuration + len(inst.periods) - 1) / len(inst.periods)
	return inst, nil
}

func (inst *Instance) addPeer(i, j int) {
	for _, p := range inst.peers[i] {
		if p == j {
			return
		}
	}
	inst.peers[i] = append(inst.peers[i], j)
}

func (inst *Instance) checkRules(rules []RuleSpec) error {
	for _, r := range rules {
		switch r.Kind {
		case RulePrecedes, RulePrecedesConcurrent:
			if _, ok := inst.eventIndex[r.Event]; !ok {
				return invalid(r.Event, "rule %s references an unknown event", r.Kind)
			}
			if _, ok := inst.eventIndex[r.Target]; !ok {
				return invalid(r.Target, "rule %s references an unknown target", r.Kind)
			}
		case RuleRestrict, RuleExclude:
			if _, ok := inst.eventIndex[r.Event]; !ok {
				return invalid(r.Event, "rule %s references an unknown event", r.Kind)
			}
			if len(r.Periods) == 0 {
				return invalid(r.Event, "rule %s needs at least one period", r.Kind)
			}
		case RuleAny, RuleEvery, RuleNone:
			if len(r.Children) == 0 {
				return invalid("", "rule group %s has no children", r.Kind)
			}
			if err := inst.checkRules(r.Children); err != nil {
				return err
			}
		default:
			return invalid(r.Event, "unknown rule kind %q", r.Kind)
		}
	}
	return nil
}

// buildSpan lists the resource cells event e occupies when it starts on r.
// Cells beyond the catalog are skipped.
func (inst *Instance) buildSpan(e, r int) []int {
	res := inst.Resources[r]
	span := make([]int, 0, inst.Events[e].Duration)
	for k := 0; k < inst.Events[e].Duration; k++ {
		if c, ok := inst.cells[cellKey{location: res.Location, period: res.Period + k}]; ok {
			span = append(span, c)
		}
	}
	return span
}

func (inst *Instance) fits(e, r int) bool {
	ev := &inst.Events[e]
	res := inst.Resources[r]
	if !ev.RequiresKind(res.Kind) || ev.Size > res.Capacity {
		return false
	}
	span := inst.spans[e][r]
	if len(span) != ev.Duration {
		return false
	}
	for _, c := range span {
		if inst.Resources[c].Capacity < ev.Size {
			return false
		}
	}
	return true
}

// Fits reports whether event e may be placed on resource r.
func (inst *Instance) Fits(e, r int) bool {
	return inst.fits(e, r)
}

// Compatible returns the resources event e fits on, in catalog order.
func (inst *Instance) Compatible(e int) []int { return inst.compatible[e] }

// Span returns the resource cells event e occupies when started on r.
func (inst *Instance) Span(e, r int) []int { return inst.spans[e][r] }

// Peers returns the events that conflict with e.
func (inst *Instance) Peers(e int) []int { return inst.peers[e] }

// EventIndex resolves an event ID to its catalog position.
func (inst *Instance) EventIndex(id EventID) (int, bool) {
	i, ok := inst.eventIndex[id]
	return i, ok
}

// ResourceIndex resolves a resource ID to its catalog position.
func (inst *Instance) ResourceIndex(id ResourceID) (int, bool) {
	i, ok := inst.resourceIndex[id]
	return i, ok
}

// Periods returns the distinct periods in ascending order.
func (inst *Instance) Periods() []int { return inst.periods }

// CellPeriod returns the position in Periods of resource r's period.
func (inst *Instance) CellPeriod(r int) int { return inst.cellPeriod[r] }

// LoadLevel is the per-period occupancy above which load balance penalties apply.
func (inst *Instance) LoadLevel() int { return inst.level }
