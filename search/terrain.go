// Package search provides the reference pathfinder and region router used by
// the movement engine: a bounded A* over terrain and cost surfaces, and a
// Dijkstra route planner over the region lattice.
package search

import "rover/grid"

// Terrain classifies a tile.
type Terrain uint8

const (
	TerrainPlain Terrain = iota
	TerrainSwamp
	TerrainWall
)

func (t Terrain) String() string {
	switch t {
	case TerrainPlain:
		return "plain"
	case TerrainSwamp:
		return "swamp"
	case TerrainWall:
		return "wall"
	}
	return "unknown"
}

// TerrainSource answers terrain queries.
type TerrainSource interface {
	Terrain(p grid.Position) Terrain
}

type regionTerrain [grid.RegionSize * grid.RegionSize]Terrain

// TerrainGrid is a sparse map of regions. Tiles in regions that were never
// added are walls.
type TerrainGrid struct {
	regions map[grid.RegionID]*regionTerrain
}

// NewTerrainGrid returns an empty grid.
func NewTerrainGrid() *TerrainGrid {
	return &TerrainGrid{regions: make(map[grid.RegionID]*regionTerrain)}
}

// AddRegion registers region filled with plain terrain. Adding an existing
// region is a no-op.
func (g *TerrainGrid) AddRegion(region grid.RegionID) {
	if _, ok := g.regions[region]; ok {
		return
	}
	g.regions[region] = &regionTerrain{}
}

// HasRegion reports whether region was added.
func (g *TerrainGrid) HasRegion(region grid.RegionID) bool {
	_, ok := g.regions[region]
	return ok
}

// Regions lists the registered regions in CompareRegions order.
func (g *TerrainGrid) Regions() []grid.RegionID {
	out := make([]grid.RegionID, 0, len(g.regions))
	for r := range g.regions {
		out = append(out, r)
	}
	sortRegions(out)
	return out
}

// Set assigns terrain to p, registering its region when needed.
func (g *TerrainGrid) Set(p grid.Position, t Terrain) {
	g.AddRegion(p.Region)
	g.regions[p.Region][p.Location().Index()] = t
}

// Terrain implements TerrainSource.
func (g *TerrainGrid) Terrain(p grid.Position) Terrain {
	if g == nil {
		return TerrainWall
	}
	cells, ok := g.regions[p.Region]
	if !ok || !p.Location().Valid() {
		return TerrainWall
	}
	return cells[p.Location().Index()]
}

// Walkable reports whether p is not a wall.
func (g *TerrainGrid) Walkable(p grid.Position) bool {
	return g.Terrain(p) != TerrainWall
}
