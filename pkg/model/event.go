package model

// EventID identifies an event inside an Instance catalog.
type EventID string

// Event is an atomic schedulable unit such as a course section or an exam.
type Event struct {
	ID        EventID   `csv:"event_id" json:"id"`
	Name      string    `csv:"name" json:"name"`
	Duration  int       `csv:"duration" json:"duration"`
	Size      int       `csv:"size" json:"size"`
	KindsSTR  string    `csv:"kinds" json:"-"`
	PrefSTR   string    `csv:"preferred_periods" json:"-"`
	Kinds     []string  `csv:"-" json:"kinds,omitempty"`
	Preferred []int     `csv:"-" json:"preferred,omitempty"`
	Conflicts []EventID `csv:"-" json:"conflicts,omitempty"`
}

// ConflictCSV is a single row of the conflicts file. The relation is symmetric.
type ConflictCSV struct {
	EventA EventID `csv:"event_a"`
	EventB EventID `csv:"event_b"`
}

// RequiresKind reports whether a resource of the given kind can host the event.
func (e *Event) RequiresKind(kind string) bool {
	if len(e.Kinds) == 0 {
		return true
	}
	for _, k := range e.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Prefers reports whether period is one of the preferred start periods.
// Events without preferences prefer every period.
func (e *Event) Prefers(period int) bool {
	if len(e.Preferred) == 0 {
		return true
	}
	for _, p := range e.Preferred {
		if p == period {
			return true
		}
	}
	return false
}
