// Package pathcache stores per-agent cached paths and generates new ones
// through a region router, the cost surface builder and a pathfinder.
package pathcache

import "rover/grid"

const (
	// DefaultReusePathLength is how many cycles a path is used before it is
	// regenerated.
	DefaultReusePathLength = 5
	// DefaultLookahead is how many upcoming steps are searched when locating
	// the agent on its cached path.
	DefaultLookahead = 4
)

// Entry is a cached path toward Target within Range.
type Entry struct {
	Target grid.Position   `json:"target"`
	Range  uint32          `json:"range"`
	Steps  []grid.Position `json:"steps,omitempty"`
	Age    uint16          `json:"age"`
}

// Status explains the outcome of Lookup.
type Status uint8

const (
	StatusHit Status = iota
	StatusMiss
	StatusExpired
	StatusDiverged
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusMiss:
		return "miss"
	case StatusExpired:
		return "expired"
	case StatusDiverged:
		return "diverged"
	case StatusExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Empty reports whether there is no cached path.
func (e *Entry) Empty() bool {
	return len(e.Steps) == 0
}

// Matches reports whether the entry was generated for target and rng.
func (e *Entry) Matches(target grid.Position, rng uint32) bool {
	return !e.Empty() && e.Target == target && e.Range == rng
}

// Expired reports whether the entry has been used reuse times.
func (e *Entry) Expired(reuse uint16) bool {
	return e.Age >= reuse
}

// Resume finds where pos sits on the first lookahead steps. A step equal to
// pos resumes after it; a step adjacent to pos resumes at it. The furthest
// match wins.
func (e *Entry) Resume(pos grid.Position, lookahead int) (int, bool) {
	window := min(lookahead, len(e.Steps))
	idx, found := 0, false
	for k := 0; k < window; k++ {
		step := e.Steps[k]
		switch {
		case step == pos:
			idx, found = k+1, true
		case step.IsNear(pos) && k >= idx:
			idx, found = k, true
		}
	}
	return idx, found
}

// Lookup returns the next step toward target when the cached path is still
// usable, advancing the entry and aging it by one cycle. Any status other
// than StatusHit leaves the entry for the caller to replace.
func (e *Entry) Lookup(pos, target grid.Position, rng uint32, reuse uint16, lookahead int) (grid.Position, Status) {
	if !e.Matches(target, rng) {
		return grid.Position{}, StatusMiss
	}
	if e.Expired(reuse) {
		return grid.Position{}, StatusExpired
	}
	k, ok := e.Resume(pos, lookahead)
	if !ok {
		return grid.Position{}, StatusDiverged
	}
	if k >= len(e.Steps) {
		return grid.Position{}, StatusExhausted
	}
	e.Steps = e.Steps[k:]
	e.Age++
	return e.Steps[0], StatusHit
}

// Replace installs a freshly generated path.
func (e *Entry) Replace(target grid.Position, rng uint32, steps []grid.Position) {
	e.Target = target
	e.Range = rng
	e.Steps = append(e.Steps[:0:0], steps...)
	e.Age = 0
}

// Clear drops the cached path.
func (e *Entry) Clear() {
	*e = Entry{}
}

// Invalidate forces the next Lookup to miss while keeping the target for
// follow-cycle fallback.
func (e *Entry) Invalidate() {
	e.Steps = nil
	e.Age = 0
}
