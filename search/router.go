package search

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"slices"

	"rover/grid"
)

// ErrNoRoute reports that no chain of passable regions joins two regions.
var ErrNoRoute = errors.New("search: no route")

// HostileRegionCost is the traversal cost of a hostile region when hostile
// regions are allowed.
const HostileRegionCost = 5.0

// RouteOptions adjust region traversal costs.
type RouteOptions struct {
	AllowHostile bool `yaml:"allow_hostile" json:"allow_hostile"`
}

// RegionCostFunc weighs a transition between adjacent regions. A false or
// infinite result makes the transition impassable.
type RegionCostFunc func(from, to grid.RegionID) (float64, bool)

// RegionGraph is the reference router over a TerrainGrid. Regions sharing an
// edge are connected.
type RegionGraph struct {
	Terrain *TerrainGrid
	Hostile map[grid.RegionID]bool
}

// NewRegionGraph returns a router over terrain.
func NewRegionGraph(terrain *TerrainGrid) *RegionGraph {
	return &RegionGraph{Terrain: terrain, Hostile: make(map[grid.RegionID]bool)}
}

// SetHostile marks or clears a hostile region.
func (g *RegionGraph) SetHostile(region grid.RegionID, hostile bool) {
	if hostile {
		g.Hostile[region] = true
		return
	}
	delete(g.Hostile, region)
}

// RegionCost weighs entering to from from.
func (g *RegionGraph) RegionCost(from, to grid.RegionID, opts RouteOptions) (float64, bool) {
	if !g.Terrain.HasRegion(to) {
		return math.Inf(1), false
	}
	if g.Hostile[to] {
		if !opts.AllowHostile {
			return math.Inf(1), false
		}
		return HostileRegionCost, true
	}
	return 1, true
}

// LinearDistance is the Chebyshev distance between regions.
func (g *RegionGraph) LinearDistance(from, to grid.RegionID) uint32 {
	dx := absInt(int(from.X) - int(to.X))
	dy := absInt(int(from.Y) - int(to.Y))
	return uint32(max(dx, dy))
}

// Walkable reports whether p is not a wall.
func (g *RegionGraph) Walkable(p grid.Position) bool {
	return g.Terrain.Walkable(p)
}

type routeNode struct {
	region grid.RegionID
	cost   float64
	index  int
}

type routeQueue []*routeNode

func (q routeQueue) Len() int { return len(q) }

func (q routeQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return grid.CompareRegions(q[i].region, q[j].region) < 0
}

func (q routeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *routeQueue) Push(x any) {
	item := x.(*routeNode)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *routeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var regionSteps = [...]grid.Vector{{DX: 0, DY: -1}, {DX: 1, DY: 0}, {DX: 0, DY: 1}, {DX: -1, DY: 0}}

// Route returns the cheapest chain of regions from from to to, both
// included, weighing each transition with cost.
func (g *RegionGraph) Route(from, to grid.RegionID, cost RegionCostFunc) ([]grid.RegionID, error) {
	if from == to {
		return []grid.RegionID{from}, nil
	}
	dist := map[grid.RegionID]float64{from: 0}
	prev := make(map[grid.RegionID]grid.RegionID)
	done := make(map[grid.RegionID]bool)
	open := &routeQueue{}
	heap.Push(open, &routeNode{region: from})

	for open.Len() > 0 {
		current := heap.Pop(open).(*routeNode)
		if done[current.region] {
			continue
		}
		done[current.region] = true
		if current.region == to {
			break
		}
		for _, step := range regionSteps {
			next := grid.RegionID{X: current.region.X + int16(step.DX), Y: current.region.Y + int16(step.DY)}
			if done[next] || !g.Terrain.HasRegion(next) {
				continue
			}
			w, ok := 1.0, true
			if cost != nil {
				w, ok = cost(current.region, next)
			}
			if !ok || math.IsInf(w, 1) || math.IsNaN(w) {
				continue
			}
			d := current.cost + w
			if old, seen := dist[next]; seen && d >= old {
				continue
			}
			dist[next] = d
			prev[next] = current.region
			heap.Push(open, &routeNode{region: next, cost: d})
		}
	}

	if !done[to] {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoRoute, from, to)
	}
	route := []grid.RegionID{to}
	for r := to; r != from; {
		r = prev[r]
		route = append(route, r)
	}
	slices.Reverse(route)
	return route, nil
}

func sortRegions(regions []grid.RegionID) {
	slices.SortFunc(regions, grid.CompareRegions)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
