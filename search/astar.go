package search

import (
	"container/heap"

	"rover/costsurface"
	"rover/grid"
)

// DefaultMaxOps bounds a search when Options.MaxOps is zero.
const DefaultMaxOps = 2000

// Goal is a position to approach within Range, or to leave beyond Range when
// fleeing.
type Goal struct {
	Pos   grid.Position
	Range uint32
}

// Options bound and weight a single search.
type Options struct {
	MaxOps    int
	PlainCost uint8
	SwampCost uint8
	// Flee searches for a tile outside every goal's range.
	Flee bool
	// Regions restricts expansion to the listed regions. Empty means any.
	Regions []grid.RegionID
}

// SurfaceFunc returns the cost surface for a region. Returning false forbids
// the region.
type SurfaceFunc func(region grid.RegionID) (*costsurface.Surface, bool)

// Result is the outcome of a search. Path excludes the origin. Incomplete is
// set when the budget ran out or the goal was unreachable, in which case Path
// leads to the closest tile found.
type Result struct {
	Path       []grid.Position
	Incomplete bool
	Ops        int
	Cost       int
}

// AStar is the reference Pathfinder.
type AStar struct {
	Terrain TerrainSource
}

// NewAStar returns a pathfinder over terrain.
func NewAStar(terrain TerrainSource) *AStar {
	return &AStar{Terrain: terrain}
}

type searchNode struct {
	pos    grid.Position
	g      int
	h      int
	index  int
	parent *searchNode
}

func (n *searchNode) f() int { return n.g + n.h }

// nodeQueue orders by f, then h, then position so that equal-cost frontiers
// expand identically on every run.
type nodeQueue []*searchNode

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].f() != q[j].f() {
		return q[i].f() < q[j].f()
	}
	if q[i].h != q[j].h {
		return q[i].h < q[j].h
	}
	return grid.Compare(q[i].pos, q[j].pos) < 0
}

func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *nodeQueue) Push(x any) {
	item := x.(*searchNode)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

type searchState struct {
	terrain  TerrainSource
	opts     Options
	surface  SurfaceFunc
	surfaces map[grid.RegionID]*costsurface.Surface
	allowed  map[grid.RegionID]bool
	goals    []Goal
}

// Search runs a bounded A* from origin. With opts.Flee it searches for the
// nearest tile outside every goal's range.
func (a *AStar) Search(origin grid.Position, goals []Goal, opts Options, surface SurfaceFunc) Result {
	if opts.MaxOps <= 0 {
		opts.MaxOps = DefaultMaxOps
	}
	if opts.PlainCost == 0 {
		opts.PlainCost = 1
	}
	if opts.SwampCost == 0 {
		opts.SwampCost = 5
	}
	st := &searchState{
		terrain:  a.Terrain,
		opts:     opts,
		surface:  surface,
		surfaces: make(map[grid.RegionID]*costsurface.Surface),
		goals:    goals,
	}
	if len(opts.Regions) > 0 {
		st.allowed = make(map[grid.RegionID]bool, len(opts.Regions))
		for _, r := range opts.Regions {
			st.allowed[r] = true
		}
	}

	start := &searchNode{pos: origin, h: st.heuristic(origin)}
	if len(goals) == 0 || start.h == 0 {
		return Result{}
	}

	open := &nodeQueue{}
	heap.Init(open)
	heap.Push(open, start)
	best := map[grid.Position]int{origin: 0}
	closed := make(map[grid.Position]struct{})
	closest := start
	ops := 0

	for open.Len() > 0 {
		if ops >= opts.MaxOps {
			break
		}
		current := heap.Pop(open).(*searchNode)
		if _, seen := closed[current.pos]; seen {
			continue
		}
		closed[current.pos] = struct{}{}
		ops++

		if current.h == 0 {
			return Result{Path: reconstruct(current), Ops: ops, Cost: current.g}
		}
		if current.h < closest.h || (current.h == closest.h && current.g < closest.g) {
			closest = current
		}

		for _, next := range current.pos.Neighbors() {
			if _, seen := closed[next]; seen {
				continue
			}
			cost, ok := st.stepCost(next)
			if !ok {
				continue
			}
			g := current.g + cost
			if prev, ok := best[next]; ok && g >= prev {
				continue
			}
			best[next] = g
			heap.Push(open, &searchNode{pos: next, g: g, h: st.heuristic(next), parent: current})
		}
	}

	return Result{Path: reconstruct(closest), Incomplete: true, Ops: ops, Cost: closest.g}
}

func (st *searchState) heuristic(p grid.Position) int {
	if st.opts.Flee {
		worst := 0
		for _, goal := range st.goals {
			d := int(p.RangeTo(goal.Pos))
			if depth := int(goal.Range) + 1 - d; depth > worst {
				worst = depth
			}
		}
		return worst
	}
	bestH := -1
	for _, goal := range st.goals {
		d := int(p.RangeTo(goal.Pos)) - int(goal.Range)
		if d < 0 {
			d = 0
		}
		if bestH < 0 || d < bestH {
			bestH = d
		}
	}
	return bestH
}

func (st *searchState) stepCost(p grid.Position) (int, bool) {
	if st.allowed != nil && !st.allowed[p.Region] {
		return 0, false
	}
	s, ok := st.surfaceFor(p.Region)
	if !ok {
		return 0, false
	}
	if c := s.GetLocation(p.Location()); c != costsurface.TerrainDefault {
		if c == costsurface.Impassable {
			return 0, false
		}
		return int(c), true
	}
	switch st.terrain.Terrain(p) {
	case TerrainPlain:
		return int(st.opts.PlainCost), true
	case TerrainSwamp:
		return int(st.opts.SwampCost), true
	}
	return 0, false
}

func (st *searchState) surfaceFor(region grid.RegionID) (*costsurface.Surface, bool) {
	if s, ok := st.surfaces[region]; ok {
		return s, s != nil
	}
	if st.surface == nil {
		st.surfaces[region] = costsurface.NewSurface()
		return st.surfaces[region], true
	}
	s, ok := st.surface(region)
	if !ok {
		st.surfaces[region] = nil
		return nil, false
	}
	if s == nil {
		s = costsurface.NewSurface()
	}
	st.surfaces[region] = s
	return s, true
}

func reconstruct(end *searchNode) []grid.Position {
	var path []grid.Position
	for node := end; node != nil && node.parent != nil; node = node.parent {
		path = append(path, node.pos)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
