package model

// RuleKind names an additional hard constraint.
type RuleKind string

const (
	// RulePrecedes requires Event to end no later than Target starts.
	RulePrecedes RuleKind = "precedes"
	// RulePrecedesConcurrent lets Event start together with Target.
	RulePrecedesConcurrent RuleKind = "precedes_concurrent"
	// RuleRestrict requires Event to start in one of Periods.
	RuleRestrict RuleKind = "restrict"
	// RuleExclude forbids Event from starting in any of Periods.
	RuleExclude RuleKind = "exclude"
	// RuleAny is satisfied when at least one child is.
	RuleAny RuleKind = "any"
	// RuleEvery is satisfied when all children are.
	RuleEvery RuleKind = "every"
	// RuleNone is satisfied when no child is.
	RuleNone RuleKind = "none"
)

// RuleSpec describes a hard rule over start periods. Group kinds use Children.
type RuleSpec struct {
	Kind     RuleKind   `json:"kind"`
	Event    EventID    `json:"event,omitempty"`
	Target   EventID    `json:"target,omitempty"`
	Periods  []int      `json:"periods,omitempty"`
	Children []RuleSpec `json:"children,omitempty"`
}

// RuleCSV is a single row of the rules file. Rows sharing a Group are combined
// with GroupMode (any, every or none).
type RuleCSV struct {
	Rule       string `csv:"rule"`
	Event      string `csv:"event"`
	Target     string `csv:"target"`
	PeriodsSTR string `csv:"periods"`
	Group      string `csv:"group"`
	GroupMode  string `csv:"group_mode"`
}

// IsGroup reports whether the rule combines child rules.
func (r RuleKind) IsGroup() bool {
	return r == RuleAny || r == RuleEvery || r == RuleNone
}

// Weights scale the soft penalties.
type Weights struct {
	Preference  int64 `json:"preference" mapstructure:"preference"`
	LoadBalance int64 `json:"loadBalance" mapstructure:"loadBalance"`
}
