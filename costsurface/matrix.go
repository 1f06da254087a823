// Package costsurface composes per-region traversal-cost grids from layered
// obstacle data. Raw layers are cached per region; surfaces are derived on
// demand and never cached.
package costsurface

import "rover/grid"

const (
	// Impassable marks a tile that may not be entered.
	Impassable uint8 = 255
	// TerrainDefault leaves the tile cost to the pathfinder's terrain costs.
	TerrainDefault uint8 = 0
)

// Entry is one cost assignment in a Matrix.
type Entry struct {
	Loc  grid.Location `json:"l"`
	Cost uint8         `json:"c"`
}

// Matrix is a sparse, ordered list of cost assignments. Later entries win
// when the same location appears twice.
type Matrix struct {
	Entries []Entry `json:"entries,omitempty"`
}

// Set appends a cost assignment.
func (m *Matrix) Set(x, y uint8, cost uint8) {
	m.Entries = append(m.Entries, Entry{Loc: grid.NewLocation(x, y), Cost: cost})
}

// Len reports the number of entries.
func (m Matrix) Len() int {
	return len(m.Entries)
}

// ApplyTo writes every entry into s.
func (m Matrix) ApplyTo(s *Surface) {
	for _, e := range m.Entries {
		s.SetLocation(e.Loc, e.Cost)
	}
}

// ApplyTransformed writes every entry through fn.
func (m Matrix) ApplyTransformed(s *Surface, fn func(uint8) uint8) {
	for _, e := range m.Entries {
		s.SetLocation(e.Loc, fn(e.Cost))
	}
}

// ApplyFiltered writes the entries accepted by keep.
func (m Matrix) ApplyFiltered(s *Surface, keep func(grid.Location) bool) {
	for _, e := range m.Entries {
		if keep(e.Loc) {
			s.SetLocation(e.Loc, e.Cost)
		}
	}
}

func (m Matrix) clone() Matrix {
	if len(m.Entries) == 0 {
		return Matrix{}
	}
	return Matrix{Entries: append([]Entry(nil), m.Entries...)}
}

// Surface is a dense RegionSize x RegionSize cost grid for a single region.
// Zero means terrain default and Impassable blocks the tile.
type Surface struct {
	cells [grid.RegionSize * grid.RegionSize]uint8
}

// NewSurface returns an all-terrain-default surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Get returns the cost at (x, y); out-of-range coordinates are impassable.
func (s *Surface) Get(x, y uint8) uint8 {
	return s.GetLocation(grid.NewLocation(x, y))
}

// GetLocation returns the cost at l.
func (s *Surface) GetLocation(l grid.Location) uint8 {
	if s == nil {
		return TerrainDefault
	}
	if !l.Valid() {
		return Impassable
	}
	return s.cells[l.Index()]
}

// Set stores a cost at (x, y).
func (s *Surface) Set(x, y uint8, cost uint8) {
	s.SetLocation(grid.NewLocation(x, y), cost)
}

// SetLocation stores a cost at l; invalid locations are ignored.
func (s *Surface) SetLocation(l grid.Location, cost uint8) {
	if s == nil || !l.Valid() {
		return
	}
	s.cells[l.Index()] = cost
}

// raise lifts a tile to at least cost without unblocking impassable tiles.
func (s *Surface) raise(l grid.Location, cost uint8) {
	if !l.Valid() {
		return
	}
	current := s.cells[l.Index()]
	if current == Impassable || current >= cost {
		return
	}
	s.cells[l.Index()] = cost
}

// Blocked reports whether the tile is impassable.
func (s *Surface) Blocked(l grid.Location) bool {
	return s.GetLocation(l) == Impassable
}

// Equal reports cell-wise equality.
func (s *Surface) Equal(o *Surface) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.cells == o.cells
}

// Clone returns an independent copy.
func (s *Surface) Clone() *Surface {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
