package grid

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWorldRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		wx, wy int
		want   Position
	}{
		{name: "origin", wx: 0, wy: 0, want: Position{}},
		{name: "inside", wx: 12, wy: 49, want: Position{X: 12, Y: 49}},
		{name: "next-region", wx: 50, wy: 51, want: Position{Region: RegionID{X: 1, Y: 1}, X: 0, Y: 1}},
		{name: "negative", wx: -1, wy: -50, want: Position{Region: RegionID{X: -1, Y: -1}, X: 49, Y: 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := FromWorld(tc.wx, tc.wy)
			require.Equal(t, tc.want, got)
			wx, wy := got.World()
			assert.Equal(t, tc.wx, wx)
			assert.Equal(t, tc.wy, wy)
		})
	}
}

func TestRangeToCrossesRegions(t *testing.T) {
	a := NewPosition(RegionID{}, 49, 10)
	b := NewPosition(RegionID{X: 1}, 0, 12)
	assert.Equal(t, uint32(2), a.RangeTo(b))
	assert.True(t, a.InRangeTo(b, 2))
	assert.False(t, a.IsNear(b))
	assert.True(t, a.IsNear(a.Step(Right)))
}

func TestStepAndDirectionAgree(t *testing.T) {
	origin := NewPosition(RegionID{X: 3, Y: -2}, 0, 0)
	for _, d := range Directions {
		next := origin.Step(d)
		got, ok := origin.DirectionTo(next)
		require.True(t, ok)
		assert.Equal(t, d, got, "direction %s", d)
		assert.Equal(t, uint32(1), origin.RangeTo(next))
	}
	_, ok := origin.DirectionTo(origin)
	assert.False(t, ok)
}

func TestDirectionToFarTarget(t *testing.T) {
	p := NewPosition(RegionID{}, 10, 10)
	d, ok := p.DirectionTo(NewPosition(RegionID{}, 20, 3))
	require.True(t, ok)
	assert.Equal(t, TopRight, d)
}

func TestLocationPacking(t *testing.T) {
	l := NewLocation(17, 42)
	assert.Equal(t, uint8(17), l.X())
	assert.Equal(t, uint8(42), l.Y())
	assert.True(t, l.Valid())
	assert.Equal(t, l, LocationFromIndex(l.Index()))
	assert.False(t, NewLocation(50, 0).Valid())
}

func TestDistanceMetric(t *testing.T) {
	a := NewPosition(RegionID{}, 10, 10)
	assert.Equal(t, 4.0, Distance(a, NewPosition(RegionID{}, 14, 13)))

	far := NewPosition(RegionID{X: 1}, 10, 10)
	assert.InDelta(t, 50.0, Distance(a, far), 1e-9)

	diag := NewPosition(RegionID{X: 1, Y: 1}, 10, 10)
	assert.InDelta(t, 50*math.Sqrt2, Distance(a, diag), 1e-9)
}

func TestCompareIsTotal(t *testing.T) {
	positions := []Position{
		NewPosition(RegionID{X: 1}, 0, 0),
		NewPosition(RegionID{}, 3, 1),
		NewPosition(RegionID{}, 1, 5),
		NewPosition(RegionID{}, 1, 2),
	}
	sort.Slice(positions, func(i, j int) bool { return Compare(positions[i], positions[j]) < 0 })
	assert.Equal(t, []Position{
		NewPosition(RegionID{}, 1, 2),
		NewPosition(RegionID{}, 1, 5),
		NewPosition(RegionID{}, 3, 1),
		NewPosition(RegionID{X: 1}, 0, 0),
	}, positions)
}

func TestRegionTextRoundTrip(t *testing.T) {
	r := RegionID{X: -3, Y: 12}
	text, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "-3,12", string(text))

	var back RegionID
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, r, back)
	assert.Error(t, back.UnmarshalText([]byte("nope")))
}
