// Package grid holds the coordinate primitives shared by every movement
// component: regions, tile positions, compact in-region locations and the
// eight movement directions.
package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// RegionSize is the edge length of a region in tiles.
const RegionSize = 50

// RegionID identifies a region by its coordinates in the region lattice.
type RegionID struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
}

func (r RegionID) String() string {
	return fmt.Sprintf("R%d:%d", r.X, r.Y)
}

// MarshalText encodes the region as "x,y" so it can key JSON maps.
func (r RegionID) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(int(r.X)) + "," + strconv.Itoa(int(r.Y))), nil
}

// UnmarshalText parses the "x,y" form written by MarshalText.
func (r *RegionID) UnmarshalText(text []byte) error {
	xs, ys, ok := strings.Cut(string(text), ",")
	if !ok {
		return fmt.Errorf("grid: malformed region %q", text)
	}
	x, err := strconv.ParseInt(strings.TrimSpace(xs), 10, 16)
	if err != nil {
		return fmt.Errorf("grid: region x: %w", err)
	}
	y, err := strconv.ParseInt(strings.TrimSpace(ys), 10, 16)
	if err != nil {
		return fmt.Errorf("grid: region y: %w", err)
	}
	r.X, r.Y = int16(x), int16(y)
	return nil
}

// CompareRegions orders regions by X then Y.
func CompareRegions(a, b RegionID) int {
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	}
	return 0
}

// Position is a single tile: a region plus in-region coordinates in
// [0, RegionSize).
type Position struct {
	Region RegionID `json:"region" yaml:"region"`
	X      uint8    `json:"x" yaml:"x"`
	Y      uint8    `json:"y" yaml:"y"`
}

// NewPosition builds a position inside region. Coordinates outside the
// region are carried into the neighbouring region.
func NewPosition(region RegionID, x, y int) Position {
	return FromWorld(int(region.X)*RegionSize+x, int(region.Y)*RegionSize+y)
}

// FromWorld converts absolute world tile coordinates into a position.
func FromWorld(wx, wy int) Position {
	rx, x := floorDiv(wx, RegionSize)
	ry, y := floorDiv(wy, RegionSize)
	return Position{
		Region: RegionID{X: int16(rx), Y: int16(ry)},
		X:      uint8(x),
		Y:      uint8(y),
	}
}

func floorDiv(v, d int) (int, int) {
	q := v / d
	r := v % d
	if r < 0 {
		q--
		r += d
	}
	return q, r
}

// World reports absolute world tile coordinates.
func (p Position) World() (int, int) {
	return int(p.Region.X)*RegionSize + int(p.X), int(p.Region.Y)*RegionSize + int(p.Y)
}

// Location returns the compact in-region coordinate.
func (p Position) Location() Location {
	return NewLocation(p.X, p.Y)
}

// RangeTo is the Chebyshev distance in world tiles.
func (p Position) RangeTo(o Position) uint32 {
	ax, ay := p.World()
	bx, by := o.World()
	dx := absInt(ax - bx)
	dy := absInt(ay - by)
	if dx > dy {
		return uint32(dx)
	}
	return uint32(dy)
}

// InRangeTo reports whether o lies within r tiles of p.
func (p Position) InRangeTo(o Position, r uint32) bool {
	return p.RangeTo(o) <= r
}

// IsNear reports whether o is p or one of its eight neighbours.
func (p Position) IsNear(o Position) bool {
	return p.RangeTo(o) <= 1
}

// Add offsets p by a world vector, crossing region borders as needed.
func (p Position) Add(v Vector) Position {
	wx, wy := p.World()
	return FromWorld(wx+v.DX, wy+v.DY)
}

// Step moves one tile in direction d.
func (p Position) Step(d Direction) Position {
	return p.Add(d.Vector())
}

// DirectionTo returns the direction whose step moves p closest to o. The
// boolean is false when o equals p.
func (p Position) DirectionTo(o Position) (Direction, bool) {
	ax, ay := p.World()
	bx, by := o.World()
	return DirectionOf(Vector{DX: sign(bx - ax), DY: sign(by - ay)})
}

// Neighbors lists the eight adjacent tiles in Directions order.
func (p Position) Neighbors() [8]Position {
	var out [8]Position
	for i, d := range Directions {
		out[i] = p.Step(d)
	}
	return out
}

// OnEdge reports whether p is on its region border.
func (p Position) OnEdge() bool {
	return p.X == 0 || p.Y == 0 || p.X == RegionSize-1 || p.Y == RegionSize-1
}

func (p Position) String() string {
	return fmt.Sprintf("[%s %d,%d]", p.Region, p.X, p.Y)
}

// Compare orders positions by region, then X, then Y.
func Compare(a, b Position) int {
	if c := CompareRegions(a.Region, b.Region); c != 0 {
		return c
	}
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
