package rover

import (
	"errors"
	"fmt"

	"rover/grid"
	"rover/internal/pathcache"
	"rover/internal/stuck"
	"rover/logging"
	"rover/logging/movement"
	"rover/search"
)

// desire computes run.desired. Agents that cannot or need not move keep
// their current tile.
func (c *cycle[H]) desire(run *agentRun[H]) {
	if run == nil || !run.active || run.req.Priority == PriorityImmovable {
		return
	}
	switch run.req.Intent {
	case IntentGoTo:
		c.desireGoTo(run, run.req.Target, run.req.Range)
	case IntentFollow:
		c.desireFollow(run)
	case IntentFlee:
		c.desireFlee(run)
	}
}

func (c *cycle[H]) desireGoTo(run *agentRun[H], target grid.Position, rng uint32) {
	pos := run.snap.Pos
	if pos.InRangeTo(target, rng) {
		run.state.Stuck.Reset()
		return
	}
	c.observe(run, stuck.Key{Target: target, Range: rng}, grid.Distance(pos, target))
	if run.snap.Fatigued() {
		return
	}
	req := pathcache.Request{
		Origin: pos,
		Goals:  []search.Goal{{Pos: target, Range: rng}},
	}
	if next, ok := c.cachedStep(run, req, target, rng); ok {
		run.desired = next
	}
}

// desireFollow places a follower one step behind its leader's projected
// move, or at the formation offset from it. Followers further than the
// follow threshold path independently.
func (c *cycle[H]) desireFollow(run *agentRun[H]) {
	leaderPos, leaderNext, ok := c.leaderOf(run)
	if !ok {
		return
	}
	pos := run.snap.Pos
	goal, goalRange := leaderNext, run.req.Range
	if run.req.Offset != nil {
		goal, goalRange = leaderNext.Add(*run.req.Offset), 0
	}
	leaderMoving := leaderNext != leaderPos

	if pos.InRangeTo(goal, goalRange) {
		run.state.Stuck.Reset()
		return
	}
	if run.req.Pull && run.req.Offset == nil && run.snap.Fatigued() && leaderMoving &&
		pos.IsNear(leaderPos) && run.req.Anchor.AllowsMove(pos, leaderPos) {
		run.desired = leaderPos
		run.pulled = true
		return
	}

	c.observe(run, stuck.Key{Range: goalRange, Follow: true}, grid.Distance(pos, goal))
	if run.snap.Fatigued() {
		return
	}

	switch {
	case run.req.Offset == nil && leaderMoving && pos.IsNear(leaderPos):
		run.desired = leaderPos
	case run.req.Offset != nil && pos.IsNear(goal) && c.walkable(goal):
		run.desired = goal
	case pos.RangeTo(leaderPos) > c.engine.cfg.FollowThreshold:
		req := pathcache.Request{
			Origin: pos,
			Goals:  []search.Goal{{Pos: goal, Range: goalRange}},
		}
		if next, ok := c.cachedStep(run, req, goal, goalRange); ok {
			run.desired = next
		}
	default:
		if next, ok := c.greedyStep(pos, goal); ok {
			run.desired = next
		}
	}
}

// leaderOf reports the leader's tile and its projected next tile. A leader
// without a request this cycle is looked up and assumed stationary.
func (c *cycle[H]) leaderOf(run *agentRun[H]) (grid.Position, grid.Position, bool) {
	if lr, ok := c.runs[run.req.Leader]; ok {
		if !lr.active {
			wait := moving()
			run.preset = &wait
			return grid.Position{}, grid.Position{}, false
		}
		return lr.snap.Pos, lr.desired, true
	}
	snap, err := c.b.Env.Agent(run.req.Leader)
	if err != nil {
		run.fail(internalError(fmt.Sprintf("leader %v of %v", run.req.Leader, run.handle), err))
		return grid.Position{}, grid.Position{}, false
	}
	if snap.Inactive {
		wait := moving()
		run.preset = &wait
		return grid.Position{}, grid.Position{}, false
	}
	run.leaderPos = snap.Pos
	return snap.Pos, snap.Pos, true
}

// greedyStep picks the walkable neighbour closest to goal, if it is closer
// than pos.
func (c *cycle[H]) greedyStep(pos, goal grid.Position) (grid.Position, bool) {
	best, bestDist := pos, grid.DistanceSquared(pos, goal)
	for _, n := range pos.Neighbors() {
		if !c.walkable(n) {
			continue
		}
		if d := grid.DistanceSquared(n, goal); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, best != pos
}

func (c *cycle[H]) desireFlee(run *agentRun[H]) {
	pos := run.snap.Pos
	dist := stuck.FleeDistance(pos, run.req.Threats)
	if dist == 0 {
		run.state.Stuck.Reset()
		return
	}
	c.observe(run, stuck.Key{Flee: true}, dist)
	if run.snap.Fatigued() {
		return
	}
	goals := make([]search.Goal, 0, len(run.req.Threats))
	for _, th := range run.req.Threats {
		goals = append(goals, search.Goal{Pos: th.Pos, Range: th.Range})
	}
	gen, err := c.generate(run, pathcache.Request{Origin: pos, Goals: goals, Flee: true})
	if err != nil {
		c.pathFailed(run, run.req.Threats[0].Pos, err)
		return
	}
	c.pathGenerated(run, run.req.Threats[0].Pos, 0, gen, "flee")
	c.visualizePath(run, gen.Steps)
	run.desired = gen.Steps[0]
}

// observe folds this cycle into the stuck counters and applies the
// escalation side effects.
func (c *cycle[H]) observe(run *agentRun[H], key stuck.Key, distance float64) {
	counters := &run.state.Stuck
	up := counters.Observe(stuck.Observation{
		Key:      key,
		Pos:      run.snap.Pos,
		Distance: distance,
		Fatigued: run.snap.Fatigued(),
	}, run.limits)
	run.update = up
	if up.Escalated {
		c.engine.metrics.Add("escalations", 1)
		movement.Escalated(c.ctx, c.pub, c.tick, logging.AgentRef(run.handle), movement.EscalationPayload{
			Tier:       up.Tier.String(),
			Immobile:   counters.Immobile,
			NoProgress: counters.NoProgress,
			Position:   run.snap.Pos,
		})
	}
	if up.ForceRepath {
		c.engine.metrics.Add("forced_repaths", 1)
		run.state.Path.Invalidate()
	}
}

// cachedStep returns the next step of the cached path, regenerating it on a
// miss. Generation failures mark the run failed.
func (c *cycle[H]) cachedStep(run *agentRun[H], req pathcache.Request, target grid.Position, rng uint32) (grid.Position, bool) {
	cfg := c.engine.cfg
	entry := &run.state.Path
	next, status := entry.Lookup(run.snap.Pos, target, rng, cfg.ReusePathLength, cfg.Lookahead)
	c.engine.metrics.Add("path_cache_"+status.String(), 1)
	if status == pathcache.StatusHit {
		c.visualizePath(run, entry.Steps)
		return next, true
	}

	gen, err := c.generate(run, req)
	if err != nil {
		entry.Clear()
		c.pathFailed(run, target, err)
		return grid.Position{}, false
	}
	entry.Replace(target, rng, gen.Steps)
	c.pathGenerated(run, target, rng, gen, status.String())
	c.visualizePath(run, entry.Steps)
	return gen.Steps[0], true
}

// generate fills in the escalation-dependent options and runs the
// generator.
func (c *cycle[H]) generate(run *agentRun[H], req pathcache.Request) (pathcache.Generated, error) {
	cfg := c.engine.cfg
	opts := cfg.Surface
	if run.req.Surface != nil {
		opts = *run.req.Surface
	}
	base := opts
	tier := run.state.Stuck.Tier
	switch {
	case tier >= stuck.TierAvoidAll:
		opts = opts.WithFriendlyAgents()
	case tier == stuck.TierAvoidNearby:
		opts = opts.WithProximity(run.snap.Pos, cfg.AvoidanceRadius)
	}
	req.Surface = opts
	req.Route = run.req.Route
	req.MaxOps = cfg.MaxOps
	if tier >= stuck.TierIncreaseOps {
		req.MaxOps = cfg.EscalatedMaxOps
	}

	gen := pathcache.Generator{
		Surfaces: c.b.Surfaces,
		Cache:    c.cache,
	}
	if c.b.Router != nil {
		gen.Router = c.b.Router
	}
	if c.b.Pathfinder != nil {
		gen.Pathfinder = c.b.Pathfinder
	}
	out, err := gen.Generate(req)
	if errors.Is(err, ErrPathNotFound) && tier >= stuck.TierAvoidNearby && !base.FriendlyAgents {
		// Agents on the surface can seal a corridor. Path through them so
		// the shove tier gets a tile to claim.
		c.engine.metrics.Add("path_fallback", 1)
		req.Surface = base
		out, err = gen.Generate(req)
	}
	if err != nil {
		if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrRegionBlocked) {
			return out, err
		}
		return out, internalError("path generation", err)
	}
	if !out.Steps[0].IsNear(run.snap.Pos) || out.Steps[0] == run.snap.Pos {
		return out, internalError(fmt.Sprintf("path from %s starts at %s", run.snap.Pos, out.Steps[0]), nil)
	}
	return out, nil
}

func (c *cycle[H]) pathGenerated(run *agentRun[H], target grid.Position, rng uint32, gen pathcache.Generated, reason string) {
	c.summary.PathsGenerated++
	c.engine.metrics.Add("path_generated", 1)
	movement.PathGenerated(c.ctx, c.pub, c.tick, logging.AgentRef(run.handle), movement.PathPayload{
		From:   run.snap.Pos,
		Target: target,
		Range:  rng,
		Steps:  len(gen.Steps),
		Ops:    gen.Ops,
		Reason: reason,
		Flee:   run.req.Intent == IntentFlee,
	})
}

func (c *cycle[H]) pathFailed(run *agentRun[H], target grid.Position, err error) {
	c.summary.PathFailures++
	c.engine.metrics.Add("path_failed", 1)
	run.fail(err)
	movement.PathFailed(c.ctx, c.pub, c.tick, logging.AgentRef(run.handle), movement.PathFailurePayload{
		From:   run.snap.Pos,
		Target: target,
		Error:  err.Error(),
	})
}

func (c *cycle[H]) visualizePath(run *agentRun[H], steps []grid.Position) {
	if !run.req.Visualize || c.b.Visualizer == nil {
		return
	}
	c.b.Visualizer.Path(run.snap.Pos, append([]grid.Position(nil), steps...))
}
