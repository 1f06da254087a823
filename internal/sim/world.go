// Package sim is a headless, deterministic world that implements every
// collaborator the movement engine consumes. Moves are recorded as intents
// and applied together by Commit.
package sim

import (
	"errors"
	"fmt"
	"slices"

	"rover"
	"rover/costsurface"
	"rover/grid"
	"rover/search"
)

var (
	ErrUnknownAgent = errors.New("sim: unknown agent")
	ErrTired        = errors.New("sim: agent is fatigued")
	ErrBlocked      = errors.New("sim: tile is not walkable")
	ErrCollision    = errors.New("sim: agents collided")
)

// Agent is one simulated body.
type Agent struct {
	Name     string
	Pos      grid.Position
	Fatigue  uint32
	Inactive bool
	Hostile  bool
	// FatigueRate is added to Fatigue after every completed move.
	FatigueRate uint32
}

// SiteClass selects the construction layer a site is reported in.
type SiteClass uint8

const (
	SiteBlocked SiteClass = iota
	SiteFriendlyInactive
	SiteFriendlyActive
	SiteHostileInactive
	SiteHostileActive
)

// World owns terrain, agents and the raw obstacle layers. It implements
// rover.Environment, rover.Router and costsurface.DataSource.
type World struct {
	*search.RegionGraph

	agents     map[string]*Agent
	structures map[grid.RegionID]*costsurface.StructureLayer
	sites      map[grid.RegionID]*costsurface.ConstructionLayer
	danger     map[grid.RegionID]*costsurface.DangerLayer
	hidden     map[grid.RegionID]bool
	failures   map[string]error

	intents map[string]intent
	tick    uint64
}

type intent struct {
	dest   grid.Position
	pulled bool
}

// NewWorld returns a world of plain regions.
func NewWorld(regions ...grid.RegionID) *World {
	terrain := search.NewTerrainGrid()
	for _, r := range regions {
		terrain.AddRegion(r)
	}
	return &World{
		RegionGraph: search.NewRegionGraph(terrain),
		agents:      make(map[string]*Agent),
		structures:  make(map[grid.RegionID]*costsurface.StructureLayer),
		sites:       make(map[grid.RegionID]*costsurface.ConstructionLayer),
		danger:      make(map[grid.RegionID]*costsurface.DangerLayer),
		hidden:      make(map[grid.RegionID]bool),
		failures:    make(map[string]error),
		intents:     make(map[string]intent),
	}
}

// Tick is the number of commits so far.
func (w *World) Tick() uint64 {
	return w.tick
}

// SetTerrain changes one tile.
func (w *World) SetTerrain(p grid.Position, t search.Terrain) {
	w.Terrain.Set(p, t)
}

// AddAgent places an agent. The tile must be walkable and free.
func (w *World) AddAgent(a Agent) error {
	if a.Name == "" {
		return fmt.Errorf("sim: agent without name")
	}
	if _, ok := w.agents[a.Name]; ok {
		return fmt.Errorf("sim: duplicate agent %q", a.Name)
	}
	if !a.Inactive {
		if !w.Walkable(a.Pos) {
			return fmt.Errorf("sim: place %s at %s: %w", a.Name, a.Pos, ErrBlocked)
		}
		if other, ok := w.occupant(a.Pos); ok {
			return fmt.Errorf("sim: place %s at %s: occupied by %s", a.Name, a.Pos, other)
		}
	}
	agent := a
	w.agents[a.Name] = &agent
	return nil
}

// RemoveAgent forgets name.
func (w *World) RemoveAgent(name string) {
	delete(w.agents, name)
	delete(w.intents, name)
}

// Get returns a copy of the named agent.
func (w *World) Get(name string) (Agent, bool) {
	a, ok := w.agents[name]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// Names lists agents in order.
func (w *World) Names() []string {
	out := make([]string, 0, len(w.agents))
	for name := range w.agents {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// SetFatigue overrides an agent's fatigue.
func (w *World) SetFatigue(name string, fatigue uint32) {
	if a, ok := w.agents[name]; ok {
		a.Fatigue = fatigue
	}
}

// SetActive spawns or despawns an agent.
func (w *World) SetActive(name string, active bool) {
	if a, ok := w.agents[name]; ok {
		a.Inactive = !active
	}
}

// FailMoves makes every Move and Pull of name return err. A nil err clears
// the injection.
func (w *World) FailMoves(name string, err error) {
	if err == nil {
		delete(w.failures, name)
		return
	}
	w.failures[name] = err
}

// SetObservable hides or reveals a region's structures.
func (w *World) SetObservable(region grid.RegionID, observable bool) {
	if observable {
		delete(w.hidden, region)
		return
	}
	w.hidden[region] = true
}

func (w *World) occupant(p grid.Position) (string, bool) {
	for _, name := range w.Names() {
		a := w.agents[name]
		if !a.Inactive && a.Pos == p {
			return name, true
		}
	}
	return "", false
}

// Agent implements rover.Environment.
func (w *World) Agent(name string) (rover.AgentSnapshot, error) {
	a, ok := w.agents[name]
	if !ok {
		return rover.AgentSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return rover.AgentSnapshot{Pos: a.Pos, Fatigue: a.Fatigue, Inactive: a.Inactive}, nil
}

// Move implements rover.Environment by recording a one-step intent.
func (w *World) Move(name string, dir grid.Direction) error {
	a, err := w.movable(name)
	if err != nil {
		return err
	}
	if a.Fatigue > 0 {
		return fmt.Errorf("move %s: %w", name, ErrTired)
	}
	if !dir.Valid() {
		return fmt.Errorf("move %s: invalid direction %d", name, dir)
	}
	dest := a.Pos.Step(dir)
	if !w.Walkable(dest) {
		return fmt.Errorf("move %s to %s: %w", name, dest, ErrBlocked)
	}
	w.intents[name] = intent{dest: dest}
	return nil
}

// Pull implements rover.Environment: pulled follows puller into the tile
// puller leaves, regardless of fatigue.
func (w *World) Pull(puller, pulled string) error {
	leader, err := w.lookup(puller)
	if err != nil {
		return err
	}
	follower, err := w.movable(pulled)
	if err != nil {
		return err
	}
	if !leader.Pos.IsNear(follower.Pos) || leader.Pos == follower.Pos {
		return fmt.Errorf("pull %s by %s: not adjacent", pulled, puller)
	}
	w.intents[pulled] = intent{dest: leader.Pos, pulled: true}
	return nil
}

func (w *World) lookup(name string) (*Agent, error) {
	a, ok := w.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	if a.Inactive {
		return nil, fmt.Errorf("sim: agent %q is inactive", name)
	}
	if err, ok := w.failures[name]; ok {
		return nil, err
	}
	return a, nil
}

// movable is lookup plus the one-intent-per-tick rule.
func (w *World) movable(name string) (*Agent, error) {
	a, err := w.lookup(name)
	if err != nil {
		return nil, err
	}
	if _, ok := w.intents[name]; ok {
		return nil, fmt.Errorf("sim: agent %q already moved this tick", name)
	}
	return a, nil
}

// Commit applies every recorded intent at once and advances the tick.
// Colliding intents are discarded and reported with ErrCollision.
func (w *World) Commit() error {
	final := make(map[grid.Position][]string, len(w.agents))
	for _, name := range w.Names() {
		a := w.agents[name]
		if a.Inactive {
			continue
		}
		pos := a.Pos
		if in, ok := w.intents[name]; ok {
			pos = in.dest
		}
		final[pos] = append(final[pos], name)
	}

	var collided []string
	for pos, names := range final {
		if len(names) > 1 {
			collided = append(collided, fmt.Sprintf("%v at %s", names, pos))
		}
	}

	for _, name := range w.Names() {
		a := w.agents[name]
		if a.Fatigue > 0 {
			a.Fatigue--
		}
		in, ok := w.intents[name]
		if !ok || len(collided) > 0 {
			continue
		}
		a.Pos = in.dest
		if !in.pulled {
			a.Fatigue += a.FatigueRate
		}
	}
	clear(w.intents)
	w.tick++

	if len(collided) > 0 {
		slices.Sort(collided)
		return fmt.Errorf("%w: %v", ErrCollision, collided)
	}
	return nil
}

// Bindings connects the world to an engine cycle.
func (w *World) Bindings(states rover.StateStore[string], cache *costsurface.Cache, viz rover.Visualizer) rover.Bindings[string] {
	return rover.Bindings[string]{
		Tick:       w.tick,
		Env:        w,
		States:     states,
		Router:     w,
		Pathfinder: search.NewAStar(w.Terrain),
		Surfaces:   w,
		Cache:      cache,
		Visualizer: viz,
	}
}
