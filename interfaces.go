package rover

import (
	"cmp"

	"rover/costsurface"
	"rover/grid"
	"rover/internal/pathcache"
)

// AgentSnapshot is the live state of one agent as the environment sees it.
type AgentSnapshot struct {
	Pos grid.Position
	// Fatigue above zero means the agent cannot move on its own this cycle.
	Fatigue uint32
	// Inactive agents are not on the grid yet and are skipped.
	Inactive bool
}

// Fatigued reports whether the agent has to rest this cycle.
func (s AgentSnapshot) Fatigued() bool {
	return s.Fatigue > 0
}

// Environment resolves handles and applies moves.
type Environment[H cmp.Ordered] interface {
	Agent(h H) (AgentSnapshot, error)
	Move(h H, dir grid.Direction) error
	// Pull moves pulled into the tile puller is vacating.
	Pull(puller, pulled H) error
}

// StateStore hands out the caller-owned movement state for a handle,
// creating a zero state on first use.
type StateStore[H cmp.Ordered] interface {
	State(h H) *AgentState
}

// Router plans region-level routes and answers macro walkability.
type Router interface {
	pathcache.Router
	Walkable(p grid.Position) bool
}

// Pathfinder runs a bounded tile search.
type Pathfinder interface {
	pathcache.Pathfinder
}

// Visualizer receives what the engine decided for rendering. Every callback
// reports the agent's position at the start of the cycle.
type Visualizer interface {
	Path(pos grid.Position, steps []grid.Position)
	Anchor(pos grid.Position, anchor grid.Position)
	Immovable(pos grid.Position)
	Stuck(pos grid.Position, ticks uint16)
	Failed(pos grid.Position, err error)
}

// Bindings connects one Process call to the world. Cache may be nil, in
// which case a throwaway cache is used for the cycle.
type Bindings[H cmp.Ordered] struct {
	// Tick is the world tick. The engine advances it when a caller repeats or
	// rewinds it so cache stamps stay monotonic.
	Tick       uint64
	Env        Environment[H]
	States     StateStore[H]
	Router     Router
	Pathfinder Pathfinder
	Surfaces   costsurface.DataSource
	Cache      *costsurface.Cache
	Visualizer Visualizer
}
