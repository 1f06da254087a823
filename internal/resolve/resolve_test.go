package resolve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover/grid"
)

func at(x, y int) grid.Position {
	return grid.NewPosition(grid.RegionID{}, x, y)
}

func mover(h int, from, to grid.Position) Agent[int] {
	return Agent[int]{Handle: h, Pos: from, Desired: to, Priority: PriorityNormal, AllowShove: true, AllowSwap: true}
}

func still(h int, pos grid.Position) Agent[int] {
	return mover(h, pos, pos)
}

func corridor(y int) WalkableFunc {
	return func(p grid.Position) bool { return int(p.Y) == y }
}

func outcome(t *testing.T, res Resolution[int], h int) Outcome[int] {
	t.Helper()
	o, ok := res.Get(h)
	require.True(t, ok, "no outcome for %d", h)
	return o
}

func TestMutualSwap(t *testing.T) {
	res := Resolve([]Agent[int]{mover(1, at(5, 5), at(6, 5)), mover(2, at(6, 5), at(5, 5))}, Config{}, nil)

	a, b := outcome(t, res, 1), outcome(t, res, 2)
	assert.Equal(t, KindSwap, a.Kind)
	assert.Equal(t, KindSwap, b.Kind)
	assert.Equal(t, at(6, 5), a.Tile)
	assert.Equal(t, at(5, 5), b.Tile)
	assert.Equal(t, 2, res.Stats.Swaps)
}

func TestSwapNeedsBothConsent(t *testing.T) {
	a := mover(1, at(5, 5), at(6, 5))
	b := mover(2, at(6, 5), at(5, 5))
	b.AllowSwap = false
	res := Resolve([]Agent[int]{a, b}, Config{}, corridor(5))

	assert.Equal(t, at(5, 5), outcome(t, res, 1).Tile)
	assert.Equal(t, at(6, 5), outcome(t, res, 2).Tile)
	assert.Equal(t, 2, res.Stats.Stays)
}

func TestSwapRespectsAnchor(t *testing.T) {
	a := mover(1, at(5, 5), at(6, 5))
	a.Anchor = &Anchor{Pos: at(4, 5), Range: 1}
	b := mover(2, at(6, 5), at(5, 5))
	res := Resolve([]Agent[int]{a, b}, Config{}, corridor(5))
	assert.NotEqual(t, KindSwap, outcome(t, res, 1).Kind)
}

func TestHigherPriorityWinsContestedTile(t *testing.T) {
	for _, order := range [][]int{{0, 1}, {1, 0}} {
		agents := []Agent[int]{mover(1, at(4, 5), at(5, 5)), mover(9, at(6, 5), at(5, 5))}
		agents[1].Priority = PriorityHigh
		input := []Agent[int]{agents[order[0]], agents[order[1]]}

		res := Resolve(input, Config{}, corridor(5))
		assert.Equal(t, at(5, 5), outcome(t, res, 9).Tile)
		assert.Equal(t, at(4, 5), outcome(t, res, 1).Tile)
	}
}

func TestTieBreaksOnNoProgressThenHandle(t *testing.T) {
	a := mover(1, at(4, 5), at(5, 5))
	b := mover(2, at(6, 5), at(5, 5))
	res := Resolve([]Agent[int]{a, b}, Config{}, corridor(5))
	assert.Equal(t, at(5, 5), outcome(t, res, 1).Tile)

	b.NoProgress = 3
	res = Resolve([]Agent[int]{a, b}, Config{}, corridor(5))
	assert.Equal(t, at(5, 5), outcome(t, res, 2).Tile)
}

func TestTrainMovesTogether(t *testing.T) {
	res := Resolve([]Agent[int]{
		mover(1, at(1, 5), at(2, 5)),
		mover(2, at(2, 5), at(3, 5)),
		mover(3, at(3, 5), at(4, 5)),
	}, Config{}, corridor(5))

	for h, want := range map[int]grid.Position{1: at(2, 5), 2: at(3, 5), 3: at(4, 5)} {
		o := outcome(t, res, h)
		assert.Equal(t, KindMove, o.Kind)
		assert.Equal(t, want, o.Tile)
	}
}

func TestShoveDeniedWhenOccupantDisallows(t *testing.T) {
	req := mover(1, at(4, 5), at(5, 5))
	req.Priority = PriorityHigh
	occ := still(2, at(5, 5))
	occ.AllowShove = false

	res := Resolve([]Agent[int]{req, occ}, Config{}, nil)
	assert.Equal(t, at(5, 5), outcome(t, res, 2).Tile)
	assert.NotEqual(t, at(5, 5), outcome(t, res, 1).Tile)
	assert.Zero(t, res.Stats.Shoves)
}

func TestShoveNeedsRankOrPersistence(t *testing.T) {
	req := mover(1, at(4, 5), at(5, 5))
	req.Priority = PriorityLow
	occ := still(2, at(5, 5))

	res := Resolve([]Agent[int]{req, occ}, Config{}, nil)
	assert.Equal(t, KindStay, outcome(t, res, 2).Kind)

	req.Persistent = true
	res = Resolve([]Agent[int]{req, occ}, Config{}, nil)
	assert.Equal(t, KindShove, outcome(t, res, 2).Kind)
	assert.Equal(t, at(5, 5), outcome(t, res, 1).Tile)
	assert.True(t, at(5, 5).IsNear(outcome(t, res, 2).Tile))
}

func TestLowerClaimantShovesWhenWinnerCannot(t *testing.T) {
	normal := mover(1, at(4, 5), at(5, 5))
	occ := still(2, at(5, 5))
	low := mover(3, at(5, 4), at(5, 5))
	low.Priority = PriorityLow
	low.Persistent = true
	open := map[grid.Position]bool{at(4, 5): true, at(5, 5): true, at(6, 5): true, at(5, 4): true}

	res := Resolve([]Agent[int]{normal, occ, low}, Config{}, func(p grid.Position) bool { return open[p] })
	assert.Equal(t, Outcome[int]{Handle: 3, Kind: KindMove, From: at(5, 4), Tile: at(5, 5)}, outcome(t, res, 3))
	assert.Equal(t, KindShove, outcome(t, res, 2).Kind)
	assert.Equal(t, at(6, 5), outcome(t, res, 2).Tile)
	assert.NotEqual(t, at(5, 5), outcome(t, res, 1).Tile)
	assert.Equal(t, 1, res.Stats.Shoves)
}

func TestOccupantPrefersItsOwnDesiredTile(t *testing.T) {
	lane := func(p grid.Position) bool {
		return p == at(4, 5) || p == at(5, 5) || p == at(5, 6) || p == at(5, 7)
	}
	req := mover(1, at(4, 5), at(5, 5))
	req.Priority = PriorityHigh
	occ := mover(2, at(5, 5), at(5, 6))
	occ.AllowShove = false
	blocker := still(3, at(5, 6))
	blocker.AllowShove = false

	res := Resolve([]Agent[int]{req, occ, blocker}, Config{}, lane)
	assert.Equal(t, at(5, 5), outcome(t, res, 2).Tile, "occupant cannot reach its tile and refuses shoves")
	assert.Equal(t, at(4, 5), outcome(t, res, 1).Tile)

	blocker = mover(3, at(5, 6), at(5, 7))
	res = Resolve([]Agent[int]{req, occ, blocker}, Config{}, lane)
	assert.Equal(t, at(5, 5), outcome(t, res, 1).Tile)
	assert.Equal(t, KindMove, outcome(t, res, 2).Kind)
	assert.Equal(t, at(5, 6), outcome(t, res, 2).Tile)
}

func TestShoveChainDepthBound(t *testing.T) {
	build := func(n int) []Agent[int] {
		req := mover(0, at(0, 5), at(1, 5))
		req.Priority = PriorityHigh
		agents := []Agent[int]{req}
		for i := 1; i <= n; i++ {
			agents = append(agents, still(i, at(i, 5)))
		}
		return agents
	}

	res := Resolve(build(3), Config{MaxShoveDepth: 3}, corridor(5))
	require.Equal(t, at(1, 5), outcome(t, res, 0).Tile)
	for i := 1; i <= 3; i++ {
		o := outcome(t, res, i)
		assert.Equal(t, KindShove, o.Kind)
		assert.Equal(t, at(i+1, 5), o.Tile)
	}

	res = Resolve(build(4), Config{MaxShoveDepth: 3}, corridor(5))
	assert.Equal(t, at(0, 5), outcome(t, res, 0).Tile)
	assert.Zero(t, res.Stats.Shoves)

	res = Resolve(build(4), Config{MaxShoveDepth: 4}, corridor(5))
	assert.Equal(t, at(1, 5), outcome(t, res, 0).Tile)
	assert.Equal(t, 4, res.Stats.Shoves)
}

func TestImmovableNeverMoves(t *testing.T) {
	req := mover(1, at(4, 5), at(5, 5))
	req.Priority = PriorityHigh
	req.Persistent = true
	rock := mover(2, at(5, 5), at(6, 5))
	rock.Priority = PriorityImmovable

	res := Resolve([]Agent[int]{req, rock}, Config{}, nil)
	o := outcome(t, res, 2)
	assert.Equal(t, KindStay, o.Kind)
	assert.Equal(t, at(5, 5), o.Tile)
	assert.NotEqual(t, at(5, 5), outcome(t, res, 1).Tile)
}

func TestShovedAgentStaysWithinAnchor(t *testing.T) {
	req := mover(1, at(4, 5), at(5, 5))
	req.Priority = PriorityHigh
	occ := still(2, at(5, 5))
	occ.Anchor = &Anchor{Pos: at(5, 5), Range: 0}

	res := Resolve([]Agent[int]{req, occ}, Config{}, nil)
	assert.Equal(t, KindStay, outcome(t, res, 2).Kind)

	occ.Anchor = &Anchor{Pos: at(6, 6), Range: 0}
	res = Resolve([]Agent[int]{req, occ}, Config{}, nil)
	assert.Equal(t, at(6, 6), outcome(t, res, 2).Tile)
}

func TestOwnMoveAnchorRule(t *testing.T) {
	a := &Anchor{Pos: at(10, 10), Range: 2}
	assert.True(t, a.AllowsMove(at(10, 12), at(11, 12)))
	assert.False(t, a.AllowsMove(at(10, 12), at(10, 13)))
	assert.True(t, a.AllowsMove(at(10, 15), at(10, 14)), "outside may move closer")
	assert.False(t, a.AllowsMove(at(10, 15), at(11, 15)))
	var none *Anchor
	assert.True(t, none.AllowsMove(at(0, 0), at(40, 40)))
}

func TestLoserAvoidsTowardTarget(t *testing.T) {
	winner := mover(1, at(5, 4), at(5, 5))
	winner.Priority = PriorityHigh
	loser := mover(2, at(5, 6), at(5, 5))

	res := Resolve([]Agent[int]{winner, loser}, Config{}, nil)
	require.Equal(t, at(5, 5), outcome(t, res, 1).Tile)
	o := outcome(t, res, 2)
	assert.Equal(t, KindAvoid, o.Kind)
	// (6,5) and (4,5) are the closest neighbours of the target; Direction
	// order scans right before left.
	assert.Equal(t, at(6, 5), o.Tile)
}

func TestAvoidanceSkipsContestedTiles(t *testing.T) {
	winner := mover(1, at(5, 4), at(5, 5))
	winner.Priority = PriorityHigh
	loser := mover(2, at(5, 6), at(5, 5))
	walls := func(p grid.Position) bool { return p != at(4, 5) && p != at(4, 6) && p != at(6, 6) }
	// The rival wants (6,5) but its anchor keeps it from taking the tile.
	rival := mover(3, at(7, 5), at(6, 5))
	rival.Anchor = &Anchor{Pos: at(7, 5), Range: 0}

	res := Resolve([]Agent[int]{winner, loser, rival}, Config{}, walls)
	assert.Equal(t, at(5, 6), outcome(t, res, 2).Tile)
	assert.Equal(t, at(7, 5), outcome(t, res, 3).Tile)
}

func TestNoCollisionsUnderRandomLoad(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		taken := map[grid.Position]bool{}
		var agents []Agent[int]
		for h := 0; h < 30; h++ {
			pos := at(rng.Intn(8), rng.Intn(8))
			if taken[pos] {
				continue
			}
			taken[pos] = true
			d := grid.Directions[rng.Intn(len(grid.Directions))]
			desired := pos.Step(d)
			if rng.Intn(5) == 0 {
				desired = pos
			}
			a := mover(h, pos, desired)
			a.Priority = Priority(rng.Intn(4))
			a.AllowShove = rng.Intn(3) != 0
			a.AllowSwap = rng.Intn(3) != 0
			a.Persistent = rng.Intn(6) == 0
			a.NoProgress = uint16(rng.Intn(4))
			agents = append(agents, a)
		}
		walkable := func(p grid.Position) bool { return p.X < 8 && p.Y < 8 }

		res := Resolve(agents, Config{MaxShoveDepth: 1 + round%10}, walkable)
		require.Len(t, res.Outcomes, len(agents))

		finals := map[grid.Position]int{}
		for _, a := range agents {
			o := outcome(t, res, a.Handle)
			if prev, dup := finals[o.Tile]; dup {
				t.Fatalf("round %d: %d and %d both end on %s", round, prev, a.Handle, o.Tile)
			}
			finals[o.Tile] = a.Handle
			assert.True(t, a.Pos.IsNear(o.Tile))
			assert.True(t, walkable(o.Tile))
			if a.Priority == PriorityImmovable {
				assert.Equal(t, a.Pos, o.Tile)
			}
			if o.Kind == KindSwap {
				other := outcome(t, res, findAt(agents, o.Tile))
				assert.Equal(t, KindSwap, other.Kind)
				assert.Equal(t, a.Pos, other.Tile)
			}
		}

		shuffled := append([]Agent[int](nil), agents...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again := Resolve(shuffled, Config{MaxShoveDepth: 1 + round%10}, walkable)
		require.Equal(t, res.Outcomes, again.Outcomes, "round %d", round)
	}
}

func findAt(agents []Agent[int], pos grid.Position) int {
	for _, a := range agents {
		if a.Pos == pos {
			return a.Handle
		}
	}
	return -1
}
