package scheduler

import "github.com/rhyrak/localsearch/pkg/model"

// rule is a RuleSpec resolved to catalog positions.
type rule struct {
	kind     model.RuleKind
	event    int
	target   int
	periods  []int
	children []rule
}

// ruleSet holds the compiled top-level rules and, per event, the top-level
// rules whose tree mentions it.
type ruleSet struct {
	rules   []rule
	byEvent [][]int
}

func compileRules(inst *model.Instance) *ruleSet {
	rs := &ruleSet{
		rules:   make([]rule, 0, len(inst.Rules)),
		byEvent: make([][]int, len(inst.Events)),
	}
	for i, spec := range inst.Rules {
		r := compileRule(inst, spec)
		rs.rules = append(rs.rules, r)
		seen := map[int]bool{}
		r.walk(func(e int) {
			if e >= 0 && !seen[e] {
				seen[e] = true
				rs.byEvent[e] = append(rs.byEvent[e], i)
			}
		})
	}
	return rs
}

func compileRule(inst *model.Instance, spec model.RuleSpec) rule {
	r := rule{kind: spec.Kind, event: -1, target: -1, periods: spec.Periods}
	if e, ok := inst.EventIndex(spec.Event); ok {
		r.event = e
	}
	if t, ok := inst.EventIndex(spec.Target); ok {
		r.target = t
	}
	for _, c := range spec.Children {
		r.children = append(r.children, compileRule(inst, c))
	}
	return r
}

func (r *rule) walk(fn func(e int)) {
	fn(r.event)
	fn(r.target)
	for i := range r.children {
		r.children[i].walk(fn)
	}
}

// violations counts how far r is from being satisfied under v. Rules that
// involve an unassigned event count as satisfied.
func (r *rule) violations(v view) int {
	switch r.kind {
	case model.RulePrecedes, model.RulePrecedesConcurrent:
		before, ok := v.start(r.event)
		if !ok {
			return 0
		}
		after, ok := v.start(r.target)
		if !ok {
			return 0
		}
		if r.kind == model.RulePrecedes {
			before += v.duration(r.event)
		}
		if before > after {
			return 1
		}
		return 0
	case model.RuleRestrict, model.RuleExclude:
		p, ok := v.start(r.event)
		if !ok {
			return 0
		}
		if containsInt(r.periods, p) == (r.kind == model.RuleRestrict) {
			return 0
		}
		return 1
	case model.RuleAny:
		least := -1
		for i := range r.children {
			n := r.children[i].violations(v)
			if n == 0 {
				return 0
			}
			if least < 0 || n < least {
				least = n
			}
		}
		return least
	case model.RuleEvery:
		total := 0
		for i := range r.children {
			total += r.children[i].violations(v)
		}
		return total
	case model.RuleNone:
		satisfied := 0
		for i := range r.children {
			if r.children[i].violations(v) == 0 {
				satisfied++
			}
		}
		return satisfied
	}
	return 0
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
