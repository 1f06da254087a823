// Package resolve turns the desired tiles of every participating agent into a
// conflict-free set of single-step outcomes.
package resolve

import (
	"cmp"

	"rover/grid"
)

// Priority orders agents in contention.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	// PriorityImmovable agents never move and are never swapped, shoved or
	// routed around.
	PriorityImmovable
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityImmovable:
		return "immovable"
	}
	return "unknown"
}

// Anchor confines an agent to within Range tiles of Pos.
type Anchor struct {
	Pos   grid.Position `json:"pos" yaml:"pos"`
	Range uint32        `json:"range" yaml:"range"`
}

// Allows reports whether tile lies within the anchor range. A nil anchor
// allows everything.
func (a *Anchor) Allows(tile grid.Position) bool {
	return a == nil || a.Pos.InRangeTo(tile, a.Range)
}

// AllowsMove applies the own-move rule: the move must stay in range, or
// bring an agent that is already outside strictly closer.
func (a *Anchor) AllowsMove(from, to grid.Position) bool {
	if a.Allows(to) {
		return true
	}
	cur := a.Pos.RangeTo(from)
	return cur > a.Range && a.Pos.RangeTo(to) < cur
}

// Agent is one participant. An agent whose Desired equals Pos only
// occupies its tile.
type Agent[H cmp.Ordered] struct {
	Handle     H
	Pos        grid.Position
	Desired    grid.Position
	Priority   Priority
	AllowShove bool
	AllowSwap  bool
	Anchor     *Anchor
	NoProgress uint16
	// Persistent agents may shove occupants they do not outrank.
	Persistent bool
}

// Wants reports whether the agent asks to move.
func (a *Agent[H]) Wants() bool {
	return a.Desired != a.Pos && a.Priority != PriorityImmovable
}

// Kind says how an agent ended up on its final tile.
type Kind uint8

const (
	KindStay Kind = iota
	KindMove
	KindSwap
	KindShove
	KindAvoid
)

func (k Kind) String() string {
	switch k {
	case KindStay:
		return "stay"
	case KindMove:
		return "move"
	case KindSwap:
		return "swap"
	case KindShove:
		return "shove"
	case KindAvoid:
		return "avoid"
	}
	return "unknown"
}

// Outcome is the resolved movement of one agent.
type Outcome[H cmp.Ordered] struct {
	Handle H
	Kind   Kind
	From   grid.Position
	Tile   grid.Position
}

// Moved reports whether the outcome changes the agent's tile.
func (o Outcome[H]) Moved() bool {
	return o.Tile != o.From
}

// Config bounds the resolver.
type Config struct {
	MaxShoveDepth int
}

// DefaultMaxShoveDepth is the default displacement chain length.
const DefaultMaxShoveDepth = 3

// Stats counts outcomes by kind.
type Stats struct {
	Moves  int
	Swaps  int
	Shoves int
	Avoids int
	Stays  int
}

// Resolution is the resolver output. Outcomes are in handle order.
type Resolution[H cmp.Ordered] struct {
	Outcomes []Outcome[H]
	Stats    Stats

	index map[H]int
}

// Get returns the outcome for h.
func (r *Resolution[H]) Get(h H) (Outcome[H], bool) {
	i, ok := r.index[h]
	if !ok {
		return Outcome[H]{}, false
	}
	return r.Outcomes[i], true
}

// Better is the contention policy: higher priority wins, then the agent that
// has gone longer without progress, then the lower handle.
func Better[H cmp.Ordered](a, b *Agent[H]) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.NoProgress != b.NoProgress {
		return a.NoProgress > b.NoProgress
	}
	return a.Handle < b.Handle
}

// CanShove reports whether requester may displace occupant.
func CanShove[H cmp.Ordered](requester, occupant *Agent[H]) bool {
	if !occupant.AllowShove || occupant.Priority == PriorityImmovable {
		return false
	}
	return requester.Priority > occupant.Priority || requester.Persistent
}
