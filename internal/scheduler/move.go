package scheduler

import "fmt"

// MoveKind tags the two mutations the generator produces.
type MoveKind string

const (
	MoveReassign MoveKind = "reassign"
	MoveSwap     MoveKind = "swap"
)

// Move is a candidate mutation of a Schedule. Events and resources are catalog
// positions. A reassign moves Event from From to To; a swap exchanges the
// resources of Event and Other.
type Move struct {
	Kind  MoveKind `json:"kind,omitempty"`
	Event int      `json:"event"`
	Other int      `json:"other,omitempty"`
	From  int      `json:"from,omitempty"`
	To    int      `json:"to,omitempty"`
}

func Reassign(event, from, to int) Move {
	return Move{Kind: MoveReassign, Event: event, From: from, To: to}
}

func Swap(a, b int) Move {
	return Move{Kind: MoveSwap, Event: a, Other: b}
}

// Inverse returns the move that undoes m. A swap is its own inverse.
func (m Move) Inverse() Move {
	if m.Kind == MoveReassign {
		return Reassign(m.Event, m.To, m.From)
	}
	return m
}

func (m Move) String() string {
	switch m.Kind {
	case MoveReassign:
		return fmt.Sprintf("reassign(%d: %d->%d)", m.Event, m.From, m.To)
	case MoveSwap:
		return fmt.Sprintf("swap(%d, %d)", m.Event, m.Other)
	default:
		return "none"
	}
}

type change struct {
	event, from, to int
}

// appendChanges resolves m against the current assignment of s. A move that
// does not match s is a generator bug and panics.
func (m Move) appendChanges(s *Schedule, buf []change) []change {
	n := len(s.assign)
	switch m.Kind {
	case MoveReassign:
		if m.Event < 0 || m.Event >= n || s.assign[m.Event] != m.From ||
			m.To < 0 || m.To >= len(s.inst.Resources) {
			panic(fmt.Sprintf("scheduler: stale move %s", m))
		}
		return append(buf, change{event: m.Event, from: m.From, to: m.To})
	case MoveSwap:
		if m.Event < 0 || m.Event >= n || m.Other < 0 || m.Other >= n || m.Event == m.Other ||
			s.assign[m.Event] < 0 || s.assign[m.Other] < 0 {
			panic(fmt.Sprintf("scheduler: stale move %s", m))
		}
		ra, rb := s.assign[m.Event], s.assign[m.Other]
		return append(buf,
			change{event: m.Event, from: ra, to: rb},
			change{event: m.Other, from: rb, to: ra})
	default:
		panic(fmt.Sprintf("scheduler: unknown move kind %q", m.Kind))
	}
}
