package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover/costsurface"
	"rover/grid"
)

func pos(x, y int) grid.Position {
	return grid.NewPosition(grid.RegionID{}, x, y)
}

func openTerrain(regions ...grid.RegionID) *TerrainGrid {
	g := NewTerrainGrid()
	if len(regions) == 0 {
		regions = []grid.RegionID{{}}
	}
	for _, r := range regions {
		g.AddRegion(r)
	}
	return g
}

func TestSearchStraightLine(t *testing.T) {
	astar := NewAStar(openTerrain())
	res := astar.Search(pos(5, 5), []Goal{{Pos: pos(10, 5)}}, Options{}, nil)

	require.False(t, res.Incomplete)
	require.Len(t, res.Path, 5)
	assert.Equal(t, pos(10, 5), res.Path[4])
	prev := pos(5, 5)
	for _, step := range res.Path {
		assert.True(t, prev.IsNear(step))
		prev = step
	}
}

func TestSearchStopsWithinRange(t *testing.T) {
	astar := NewAStar(openTerrain())
	res := astar.Search(pos(5, 5), []Goal{{Pos: pos(10, 5), Range: 2}}, Options{}, nil)
	require.False(t, res.Incomplete)
	assert.Len(t, res.Path, 3)

	res = astar.Search(pos(9, 5), []Goal{{Pos: pos(10, 5), Range: 2}}, Options{}, nil)
	assert.Empty(t, res.Path)
	assert.False(t, res.Incomplete)
}

func TestSearchAvoidsImpassableSurface(t *testing.T) {
	astar := NewAStar(openTerrain())
	wall := costsurface.NewSurface()
	for y := 0; y < 10; y++ {
		wall.Set(7, uint8(y), costsurface.Impassable)
	}
	surfaces := func(grid.RegionID) (*costsurface.Surface, bool) { return wall, true }

	res := astar.Search(pos(5, 5), []Goal{{Pos: pos(9, 5)}}, Options{}, surfaces)
	require.False(t, res.Incomplete)
	for _, step := range res.Path {
		assert.False(t, wall.Blocked(step.Location()), "path crosses %s", step)
	}
	assert.Equal(t, pos(9, 5), res.Path[len(res.Path)-1])
}

func TestSearchPrefersCheapTerrain(t *testing.T) {
	terrain := openTerrain()
	for y := 0; y < 50; y++ {
		terrain.Set(pos(6, y), TerrainSwamp)
	}
	road := costsurface.NewSurface()
	road.Set(6, 5, 1)
	surfaces := func(grid.RegionID) (*costsurface.Surface, bool) { return road, true }

	res := NewAStar(terrain).Search(pos(5, 5), []Goal{{Pos: pos(7, 5)}}, Options{PlainCost: 2, SwampCost: 10}, surfaces)
	require.False(t, res.Incomplete)
	assert.Equal(t, []grid.Position{pos(6, 5), pos(7, 5)}, res.Path)
	assert.Equal(t, 3, res.Cost)
}

func TestSearchBudgetReturnsIncompletePath(t *testing.T) {
	astar := NewAStar(openTerrain())
	res := astar.Search(pos(0, 0), []Goal{{Pos: pos(49, 49)}}, Options{MaxOps: 5}, nil)
	assert.True(t, res.Incomplete)
	assert.Equal(t, 5, res.Ops)
	assert.NotEmpty(t, res.Path)
}

func TestSearchUnreachableGoal(t *testing.T) {
	terrain := openTerrain()
	for _, n := range pos(20, 20).Neighbors() {
		terrain.Set(n, TerrainWall)
	}
	res := NewAStar(terrain).Search(pos(5, 5), []Goal{{Pos: pos(20, 20)}}, Options{}, nil)
	assert.True(t, res.Incomplete)
}

func TestSearchFlee(t *testing.T) {
	astar := NewAStar(openTerrain())
	threat := Goal{Pos: pos(10, 10), Range: 3}
	res := astar.Search(pos(11, 10), []Goal{threat}, Options{Flee: true}, nil)

	require.False(t, res.Incomplete)
	require.NotEmpty(t, res.Path)
	end := res.Path[len(res.Path)-1]
	assert.Greater(t, end.RangeTo(threat.Pos), threat.Range)
	assert.Len(t, res.Path, 3)
}

func TestSearchRespectsRegionRestriction(t *testing.T) {
	east := grid.RegionID{X: 1}
	astar := NewAStar(openTerrain(grid.RegionID{}, east))
	goal := grid.NewPosition(east, 2, 5)

	res := astar.Search(pos(48, 5), []Goal{{Pos: goal}}, Options{Regions: []grid.RegionID{{}}}, nil)
	assert.True(t, res.Incomplete)

	res = astar.Search(pos(48, 5), []Goal{{Pos: goal}}, Options{Regions: []grid.RegionID{{}, east}}, nil)
	require.False(t, res.Incomplete)
	assert.Equal(t, goal, res.Path[len(res.Path)-1])
}

func TestSearchIsDeterministic(t *testing.T) {
	astar := NewAStar(openTerrain())
	first := astar.Search(pos(3, 3), []Goal{{Pos: pos(30, 40)}}, Options{}, nil)
	for i := 0; i < 5; i++ {
		again := astar.Search(pos(3, 3), []Goal{{Pos: pos(30, 40)}}, Options{}, nil)
		require.Equal(t, first.Path, again.Path)
	}
}

func TestRouteAvoidsHostileRegions(t *testing.T) {
	regions := []grid.RegionID{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}}
	graph := NewRegionGraph(openTerrain(regions...))
	graph.SetHostile(grid.RegionID{X: 1}, true)

	cost := func(opts RouteOptions) RegionCostFunc {
		return func(from, to grid.RegionID) (float64, bool) { return graph.RegionCost(from, to, opts) }
	}

	route, err := graph.Route(grid.RegionID{}, grid.RegionID{X: 2}, cost(RouteOptions{}))
	require.NoError(t, err)
	assert.Equal(t, []grid.RegionID{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 0}}, route)

	route, err = graph.Route(grid.RegionID{}, grid.RegionID{X: 2}, func(grid.RegionID, grid.RegionID) (float64, bool) { return 1, true })
	require.NoError(t, err)
	assert.Len(t, route, 3)

	graph.SetHostile(grid.RegionID{X: 1, Y: 1}, true)
	_, err = graph.Route(grid.RegionID{}, grid.RegionID{X: 2}, cost(RouteOptions{}))
	assert.True(t, errors.Is(err, ErrNoRoute))

	route, err = graph.Route(grid.RegionID{}, grid.RegionID{X: 2}, cost(RouteOptions{AllowHostile: true}))
	require.NoError(t, err)
	assert.Len(t, route, 3)
}

func TestLinearDistanceAndWalkable(t *testing.T) {
	terrain := openTerrain()
	terrain.Set(pos(1, 1), TerrainWall)
	graph := NewRegionGraph(terrain)
	assert.Equal(t, uint32(3), graph.LinearDistance(grid.RegionID{X: -1}, grid.RegionID{X: 2, Y: 1}))
	assert.False(t, graph.Walkable(pos(1, 1)))
	assert.True(t, graph.Walkable(pos(2, 1)))
	assert.False(t, graph.Walkable(grid.NewPosition(grid.RegionID{X: 9}, 0, 0)))
}
