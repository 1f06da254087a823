package pathcache

import (
	"errors"
	"fmt"
	"math"

	"rover/costsurface"
	"rover/grid"
	"rover/search"
)

var (
	// ErrPathNotFound reports that the pathfinder returned no complete path.
	ErrPathNotFound = errors.New("path not found")
	// ErrRegionBlocked reports that no route of passable regions exists.
	ErrRegionBlocked = errors.New("region route blocked")
)

// DefaultMaxOps is the per-region search budget.
const DefaultMaxOps = 2000

// Router plans region-level routes.
type Router interface {
	RegionCost(from, to grid.RegionID, opts search.RouteOptions) (float64, bool)
	Route(from, to grid.RegionID, cost search.RegionCostFunc) ([]grid.RegionID, error)
	LinearDistance(from, to grid.RegionID) uint32
}

// Pathfinder runs a bounded tile search.
type Pathfinder interface {
	Search(origin grid.Position, goals []search.Goal, opts search.Options, surface search.SurfaceFunc) search.Result
}

// Request describes one path generation.
type Request struct {
	Origin  grid.Position
	Goals   []search.Goal
	Flee    bool
	Surface costsurface.Options
	Route   search.RouteOptions
	// MaxOps is the budget per region of linear distance.
	MaxOps int
}

// Generated is a successful generation.
type Generated struct {
	Steps   []grid.Position
	Regions []grid.RegionID
	Ops     int
}

// Generator wires the collaborators needed to produce paths. Cache may be
// shared across generations within a cycle.
type Generator struct {
	Router     Router
	Pathfinder Pathfinder
	Surfaces   costsurface.DataSource
	Cache      *costsurface.Cache
}

// Generate plans a route, restricts the search to the route's regions and
// runs the pathfinder. Incomplete results are failures.
func (g Generator) Generate(req Request) (Generated, error) {
	if g.Router == nil || g.Pathfinder == nil {
		return Generated{}, fmt.Errorf("pathcache: generator is missing router or pathfinder")
	}
	if len(req.Goals) == 0 {
		return Generated{}, fmt.Errorf("pathcache: no goals: %w", ErrPathNotFound)
	}
	maxOps := req.MaxOps
	if maxOps <= 0 {
		maxOps = DefaultMaxOps
	}

	costFn := func(from, to grid.RegionID) (float64, bool) {
		return g.Router.RegionCost(from, to, req.Route)
	}

	var regions []grid.RegionID
	origin := req.Origin.Region
	if req.Flee {
		regions = g.fleeRegions(origin, costFn)
	} else {
		dest := req.Goals[0].Pos.Region
		route, err := g.Router.Route(origin, dest, costFn)
		if err != nil {
			return Generated{}, fmt.Errorf("route %s to %s: %w: %w", origin, dest, ErrRegionBlocked, err)
		}
		if len(route) == 0 {
			return Generated{}, fmt.Errorf("route %s to %s: %w", origin, dest, ErrRegionBlocked)
		}
		regions = route
		maxOps *= int(g.Router.LinearDistance(origin, dest)) + 1
	}

	opts := search.Options{
		MaxOps:    maxOps,
		PlainCost: req.Surface.PlainCost,
		SwampCost: req.Surface.SwampCost,
		Flee:      req.Flee,
		Regions:   regions,
	}
	surfaces := func(region grid.RegionID) (*costsurface.Surface, bool) {
		return costsurface.Build(g.Cache, g.Surfaces, region, req.Surface), true
	}

	res := g.Pathfinder.Search(req.Origin, req.Goals, opts, surfaces)
	if res.Incomplete || len(res.Path) == 0 {
		return Generated{Ops: res.Ops}, fmt.Errorf("search from %s (%d ops, incomplete=%t): %w",
			req.Origin, res.Ops, res.Incomplete, ErrPathNotFound)
	}
	return Generated{Steps: res.Path, Regions: regions, Ops: res.Ops}, nil
}

// fleeRegions allows the origin region plus every passable neighbouring
// region.
func (g Generator) fleeRegions(origin grid.RegionID, cost search.RegionCostFunc) []grid.RegionID {
	regions := []grid.RegionID{origin}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			next := grid.RegionID{X: origin.X + int16(dx), Y: origin.Y + int16(dy)}
			if w, ok := cost(origin, next); ok && !math.IsInf(w, 1) {
				regions = append(regions, next)
			}
		}
	}
	return regions
}
