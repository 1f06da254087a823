package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Location is a tile inside a single region packed into 16 bits (x in the
// high byte, y in the low byte).
type Location uint16

// NewLocation packs in-region coordinates.
func NewLocation(x, y uint8) Location {
	return Location(uint16(x)<<8 | uint16(y))
}

// X returns the column.
func (l Location) X() uint8 { return uint8(l >> 8) }

// Y returns the row.
func (l Location) Y() uint8 { return uint8(l) }

// Valid reports whether both coordinates are inside a region.
func (l Location) Valid() bool {
	return l.X() < RegionSize && l.Y() < RegionSize
}

// Index is the row-major offset into a RegionSize*RegionSize grid.
func (l Location) Index() int {
	return int(l.Y())*RegionSize + int(l.X())
}

// In places the location inside region.
func (l Location) In(region RegionID) Position {
	return Position{Region: region, X: l.X(), Y: l.Y()}
}

// LocationFromIndex reverses Index.
func LocationFromIndex(idx int) Location {
	return NewLocation(uint8(idx%RegionSize), uint8(idx/RegionSize))
}

// Distance is the progress metric used by stuck tracking: Chebyshev tiles
// when both positions share a region, straight-line world distance
// otherwise.
func Distance(a, b Position) float64 {
	if a.Region == b.Region {
		return float64(a.RangeTo(b))
	}
	ax, ay := a.World()
	bx, by := b.World()
	return planar.Distance(orb.Point{float64(ax), float64(ay)}, orb.Point{float64(bx), float64(by)})
}

// DistanceSquared is the squared Euclidean distance in world tiles.
func DistanceSquared(a, b Position) int {
	ax, ay := a.World()
	bx, by := b.World()
	dx := ax - bx
	dy := ay - by
	return dx*dx + dy*dy
}
