package resolve

import (
	"cmp"
	"slices"

	"rover/grid"
)

// WalkableFunc reports whether a tile may be entered at all.
type WalkableFunc func(grid.Position) bool

type entry[H cmp.Ordered] struct {
	agent    *Agent[H]
	resolved bool
	pending  bool
	kind     Kind
	tile     grid.Position
}

type resolver[H cmp.Ordered] struct {
	cfg      Config
	walkable WalkableFunc
	entries  map[H]*entry[H]
	handles  []H
	occupant map[grid.Position]H
	reserved map[grid.Position]H
	claims   map[grid.Position][]H
	tiles    []grid.Position
}

// Resolve assigns every agent a final tile. No two agents share a final
// tile, Immovable agents stay, and the result does not depend on the order
// of agents.
func Resolve[H cmp.Ordered](agents []Agent[H], cfg Config, walkable WalkableFunc) Resolution[H] {
	if cfg.MaxShoveDepth <= 0 {
		cfg.MaxShoveDepth = DefaultMaxShoveDepth
	}
	if walkable == nil {
		walkable = func(grid.Position) bool { return true }
	}
	r := &resolver[H]{
		cfg:      cfg,
		walkable: walkable,
		entries:  make(map[H]*entry[H], len(agents)),
		occupant: make(map[grid.Position]H, len(agents)),
		reserved: make(map[grid.Position]H, len(agents)),
		claims:   make(map[grid.Position][]H),
	}
	for i := range agents {
		a := &agents[i]
		if _, dup := r.entries[a.Handle]; dup {
			continue
		}
		r.entries[a.Handle] = &entry[H]{agent: a}
		r.handles = append(r.handles, a.Handle)
	}
	slices.Sort(r.handles)
	for _, h := range r.handles {
		a := r.entries[h].agent
		if _, taken := r.occupant[a.Pos]; !taken {
			r.occupant[a.Pos] = h
		}
	}

	r.pinImmovable()
	r.resolveSwaps()
	r.collectClaims()
	r.settleOpenTiles()
	r.settleOccupiedTiles()
	r.avoidOrStay()
	return r.result()
}

func (r *resolver[H]) pinImmovable() {
	for _, h := range r.handles {
		e := r.entries[h]
		if e.agent.Priority == PriorityImmovable {
			r.finish(e, KindStay, e.agent.Pos)
		}
	}
}

func (r *resolver[H]) resolveSwaps() {
	for _, h := range r.handles {
		e := r.entries[h]
		a := e.agent
		if e.resolved || !a.Wants() || !a.AllowSwap {
			continue
		}
		oh, ok := r.occupant[a.Desired]
		if !ok || oh == h {
			continue
		}
		o := r.entries[oh]
		b := o.agent
		if o.resolved || !b.Wants() || !b.AllowSwap || b.Desired != a.Pos {
			continue
		}
		if !a.Anchor.AllowsMove(a.Pos, a.Desired) || !b.Anchor.AllowsMove(b.Pos, b.Desired) {
			continue
		}
		if !r.walkable(a.Desired) || !r.walkable(b.Desired) {
			continue
		}
		r.finish(e, KindSwap, a.Desired)
		r.finish(o, KindSwap, b.Desired)
	}
}

func (r *resolver[H]) collectClaims() {
	for _, h := range r.handles {
		e := r.entries[h]
		if e.resolved || !e.agent.Wants() {
			continue
		}
		d := e.agent.Desired
		if _, ok := r.claims[d]; !ok {
			r.tiles = append(r.tiles, d)
		}
		r.claims[d] = append(r.claims[d], h)
	}
	slices.SortFunc(r.tiles, grid.Compare)
}

// settleOpenTiles repeatedly settles tiles whose occupant is absent or
// already resolved. Each settled winner frees its own tile for the next
// round.
func (r *resolver[H]) settleOpenTiles() {
	for {
		progress := false
		remaining := r.tiles[:0]
		for _, tile := range r.tiles {
			if r.occupantSettled(tile) {
				r.settleTile(tile)
				progress = true
				continue
			}
			remaining = append(remaining, tile)
		}
		r.tiles = remaining
		if !progress {
			return
		}
	}
}

func (r *resolver[H]) occupantSettled(tile grid.Position) bool {
	oh, ok := r.occupant[tile]
	return !ok || r.entries[oh].resolved
}

func (r *resolver[H]) settleTile(tile grid.Position) {
	if _, taken := r.reserved[tile]; taken {
		return
	}
	if oh, ok := r.occupant[tile]; ok && r.entries[oh].tile == tile {
		return
	}
	if best := r.bestClaimant(tile); best != nil {
		r.finish(best, KindMove, tile)
	}
}

// bestClaimant picks the Better-most unresolved claimant allowed to enter
// tile.
func (r *resolver[H]) bestClaimant(tile grid.Position) *entry[H] {
	if !r.walkable(tile) {
		return nil
	}
	var best *entry[H]
	for _, h := range r.claims[tile] {
		e := r.entries[h]
		if e.resolved || e.pending || !e.agent.Anchor.AllowsMove(e.agent.Pos, tile) {
			continue
		}
		if best == nil || Better(e.agent, best.agent) {
			best = e
		}
	}
	return best
}

// candidates lists the unresolved claimants of tile in policy order.
func (r *resolver[H]) candidates(tile grid.Position) []*entry[H] {
	if !r.walkable(tile) {
		return nil
	}
	var out []*entry[H]
	for _, h := range r.claims[tile] {
		e := r.entries[h]
		if e.resolved || !e.agent.Anchor.AllowsMove(e.agent.Pos, tile) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entry[H]) int {
		if Better(a.agent, b.agent) {
			return -1
		}
		if Better(b.agent, a.agent) {
			return 1
		}
		return 0
	})
	return out
}

// settleOccupiedTiles handles tiles still held by an unresolved occupant,
// asking the occupant to make way for each claimant in turn.
func (r *resolver[H]) settleOccupiedTiles() {
	for _, tile := range r.tiles {
		for _, c := range r.candidates(tile) {
			if _, taken := r.reserved[tile]; taken {
				break
			}
			if c.resolved {
				continue
			}
			c.pending = true
			ok := r.makeWay(tile, c.agent, 1)
			c.pending = false
			if ok {
				r.finish(c, KindMove, tile)
				break
			}
		}
	}
	r.tiles = nil
}

// makeWay clears tile for requester. depth counts the displaced agents in
// the chain so far, including the one on tile.
func (r *resolver[H]) makeWay(tile grid.Position, requester *Agent[H], depth int) bool {
	if _, taken := r.reserved[tile]; taken {
		return false
	}
	oh, ok := r.occupant[tile]
	if !ok {
		return true
	}
	o := r.entries[oh]
	if o.resolved {
		return o.tile != tile
	}
	if o.pending || depth > r.cfg.MaxShoveDepth {
		return false
	}
	o.pending = true
	defer func() { o.pending = false }()

	if o.agent.Wants() && r.claimOwn(o, requester, depth) {
		return true
	}
	if !CanShove(requester, o.agent) {
		return false
	}
	return r.shove(o, requester, depth)
}

// claimOwn lets an occupant move to its own desired tile when it would win
// that tile anyway.
func (r *resolver[H]) claimOwn(o *entry[H], requester *Agent[H], depth int) bool {
	d := o.agent.Desired
	if !r.walkable(d) || !o.agent.Anchor.AllowsMove(o.agent.Pos, d) {
		return false
	}
	if _, taken := r.reserved[d]; taken {
		return false
	}
	for _, h := range r.claims[d] {
		rival := r.entries[h]
		if rival == o || rival.resolved || rival.pending {
			continue
		}
		if Better(rival.agent, o.agent) {
			return false
		}
	}
	if !r.makeWay(d, requester, depth+1) {
		return false
	}
	r.finish(o, KindMove, d)
	return true
}

// shove displaces o onto an open neighbour, or onto a neighbour whose own
// occupant can be displaced in turn.
func (r *resolver[H]) shove(o *entry[H], requester *Agent[H], depth int) bool {
	var chained []grid.Position
	for _, n := range o.agent.Pos.Neighbors() {
		if !r.walkable(n) || !o.agent.Anchor.Allows(n) {
			continue
		}
		if _, taken := r.reserved[n]; taken {
			continue
		}
		nh, occupied := r.occupant[n]
		if occupied {
			if ne := r.entries[nh]; !ne.resolved || ne.tile == n {
				chained = append(chained, n)
				continue
			}
		}
		r.finish(o, KindShove, n)
		return true
	}
	if depth >= r.cfg.MaxShoveDepth {
		return false
	}
	for _, n := range chained {
		if r.makeWay(n, requester, depth+1) {
			r.finish(o, KindShove, n)
			return true
		}
	}
	return false
}

// avoidOrStay gives every remaining agent that wanted to move a sidestep
// next to its blocked target when one is free, and pins everyone else.
func (r *resolver[H]) avoidOrStay() {
	var rest []*entry[H]
	for _, h := range r.handles {
		if e := r.entries[h]; !e.resolved {
			rest = append(rest, e)
		}
	}
	slices.SortFunc(rest, func(a, b *entry[H]) int {
		if Better(a.agent, b.agent) {
			return -1
		}
		if Better(b.agent, a.agent) {
			return 1
		}
		return 0
	})
	// Stationary agents keep their tiles before anyone sidesteps.
	for _, e := range rest {
		if !e.agent.Wants() {
			r.finish(e, KindStay, e.agent.Pos)
		}
	}
	for _, e := range rest {
		if e.resolved {
			continue
		}
		if tile, ok := r.avoidTile(e); ok {
			r.finish(e, KindAvoid, tile)
			continue
		}
		r.finish(e, KindStay, e.agent.Pos)
	}
}

func (r *resolver[H]) avoidTile(e *entry[H]) (grid.Position, bool) {
	a := e.agent
	var (
		best     grid.Position
		bestDist = -1
	)
	for _, n := range a.Pos.Neighbors() {
		if n == a.Desired || !n.IsNear(a.Desired) {
			continue
		}
		if !r.walkable(n) || !a.Anchor.Allows(n) {
			continue
		}
		if _, taken := r.reserved[n]; taken {
			continue
		}
		if oh, occupied := r.occupant[n]; occupied {
			if oe := r.entries[oh]; !oe.resolved || oe.tile == n {
				continue
			}
		}
		if r.contested(n, a.Handle) {
			continue
		}
		d := grid.DistanceSquared(n, a.Desired)
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, bestDist >= 0
}

// contested reports whether an unresolved agent other than self wants tile.
func (r *resolver[H]) contested(tile grid.Position, self H) bool {
	for _, h := range r.claims[tile] {
		if h != self && !r.entries[h].resolved {
			return true
		}
	}
	return false
}

func (r *resolver[H]) finish(e *entry[H], kind Kind, tile grid.Position) {
	e.resolved = true
	e.kind = kind
	e.tile = tile
	r.reserved[tile] = e.agent.Handle
}

func (r *resolver[H]) result() Resolution[H] {
	res := Resolution[H]{
		Outcomes: make([]Outcome[H], 0, len(r.handles)),
		index:    make(map[H]int, len(r.handles)),
	}
	for _, h := range r.handles {
		e := r.entries[h]
		res.index[h] = len(res.Outcomes)
		res.Outcomes = append(res.Outcomes, Outcome[H]{Handle: h, Kind: e.kind, From: e.agent.Pos, Tile: e.tile})
		switch e.kind {
		case KindMove:
			res.Stats.Moves++
		case KindSwap:
			res.Stats.Swaps++
		case KindShove:
			res.Stats.Shoves++
		case KindAvoid:
			res.Stats.Avoids++
		default:
			res.Stats.Stays++
		}
	}
	return res
}
