package scheduler

import "fmt"

// Cost is a (hard violations, soft penalty) pair ordered lexicographically.
// The same type carries the difference between two costs.
type Cost struct {
	Hard int   `json:"hard"`
	Soft int64 `json:"soft"`
}

// Less reports whether c is strictly better than o.
func (c Cost) Less(o Cost) bool {
	if c.Hard != o.Hard {
		return c.Hard < o.Hard
	}
	return c.Soft < o.Soft
}

// Compare returns -1, 0 or +1.
func (c Cost) Compare(o Cost) int {
	switch {
	case c.Less(o):
		return -1
	case o.Less(c):
		return 1
	default:
		return 0
	}
}

func (c Cost) Add(d Cost) Cost { return Cost{Hard: c.Hard + d.Hard, Soft: c.Soft + d.Soft} }

func (c Cost) Sub(d Cost) Cost { return Cost{Hard: c.Hard - d.Hard, Soft: c.Soft - d.Soft} }

// IsZero reports a zero delta.
func (c Cost) IsZero() bool { return c.Hard == 0 && c.Soft == 0 }

// Improves reports a strictly improving delta.
func (c Cost) Improves() bool { return c.Less(Cost{}) }

// Penalty sizes a worsening delta for probabilistic acceptance. Hard changes
// dominate at hardWeight each; soft only counts when hard is unchanged.
func (c Cost) Penalty(hardWeight float64) float64 {
	if c.Hard != 0 {
		return float64(c.Hard) * hardWeight
	}
	return float64(c.Soft)
}

func (c Cost) String() string {
	return fmt.Sprintf("hard=%d soft=%d", c.Hard, c.Soft)
}
