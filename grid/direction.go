package grid

// Direction is one of the eight single-step movement directions. The zero
// value is not a valid direction.
type Direction uint8

const (
	Top Direction = iota + 1
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
	TopLeft
)

// Directions lists every direction clockwise from Top. Neighbour scans walk
// this order so that results are deterministic.
var Directions = [...]Direction{Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left, TopLeft}

var directionVectors = [...]Vector{
	Top:         {DX: 0, DY: -1},
	TopRight:    {DX: 1, DY: -1},
	Right:       {DX: 1, DY: 0},
	BottomRight: {DX: 1, DY: 1},
	Bottom:      {DX: 0, DY: 1},
	BottomLeft:  {DX: -1, DY: 1},
	Left:        {DX: -1, DY: 0},
	TopLeft:     {DX: -1, DY: -1},
}

// Vector is a world-space tile offset, used for direction steps and
// formation offsets.
type Vector struct {
	DX int `json:"dx" yaml:"dx"`
	DY int `json:"dy" yaml:"dy"`
}

// Valid reports whether d is one of the eight directions.
func (d Direction) Valid() bool {
	return d >= Top && d <= TopLeft
}

// Vector returns the unit step for d.
func (d Direction) Vector() Vector {
	if !d.Valid() {
		return Vector{}
	}
	return directionVectors[d]
}

// Diagonal reports whether d moves along both axes.
func (d Direction) Diagonal() bool {
	v := d.Vector()
	return v.DX != 0 && v.DY != 0
}

func (d Direction) String() string {
	return [...]string{"none", "top", "top-right", "right", "bottom-right", "bottom", "bottom-left", "left", "top-left"}[d%9]
}

// DirectionOf maps a unit vector back to its direction.
func DirectionOf(v Vector) (Direction, bool) {
	for _, d := range Directions {
		if directionVectors[d] == v {
			return d, true
		}
	}
	return 0, false
}
