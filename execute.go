package rover

import (
	"fmt"

	"rover/internal/resolve"
	"rover/internal/stuck"
	"rover/logging"
	"rover/logging/movement"
)

func (c *cycle[H]) resolve() resolve.Resolution[H] {
	agents := make([]resolve.Agent[H], 0, len(c.runs))
	for _, h := range c.handles() {
		run := c.runs[h]
		if !run.active {
			continue
		}
		a := resolve.Agent[H]{
			Handle:     h,
			Pos:        run.snap.Pos,
			Desired:    run.desired,
			Priority:   run.req.Priority,
			AllowShove: run.req.AllowShove,
			AllowSwap:  run.req.AllowSwap,
			Anchor:     run.req.Anchor,
			NoProgress: run.state.Stuck.NoProgress,
			Persistent: run.limits.Persistent(run.state.Stuck.Immobile),
		}
		switch {
		case run.pulled:
			// The pulled tile is the only one a fatigued follower can reach.
			a.AllowShove = false
			a.AllowSwap = false
			a.Anchor = &resolve.Anchor{Pos: run.desired}
		case run.snap.Fatigued():
			a.AllowShove = false
			a.AllowSwap = false
		}
		agents = append(agents, a)
	}
	return resolve.Resolve(agents, resolve.Config{MaxShoveDepth: c.engine.cfg.MaxShoveDepth}, c.walkable)
}

// execute applies every move in handle order. A rejected move only affects
// its own agent.
func (c *cycle[H]) execute(res resolve.Resolution[H]) {
	for _, o := range res.Outcomes {
		if !o.Moved() {
			continue
		}
		run := c.runs[o.Handle]
		err := c.apply(run, o)
		if err != nil {
			run.reject = err
			c.engine.metrics.Add("execution_rejected", 1)
			dir, _ := o.From.DirectionTo(o.Tile)
			movement.ExecutionRejected(c.ctx, c.pub, c.tick, logging.AgentRef(o.Handle), movement.RejectionPayload{
				From:      o.From,
				To:        o.Tile,
				Direction: dir.String(),
				Pull:      run.pulled,
				Error:     err.Error(),
			})
			continue
		}
		run.moved = true
		run.final = o.Tile
	}
}

func (c *cycle[H]) apply(run *agentRun[H], o resolve.Outcome[H]) error {
	if run.pulled && o.Tile == run.desired {
		return c.b.Env.Pull(run.req.Leader, run.handle)
	}
	if !o.From.IsNear(o.Tile) {
		return fmt.Errorf("tile %s is not adjacent to %s", o.Tile, o.From)
	}
	dir, ok := o.From.DirectionTo(o.Tile)
	if !ok {
		return fmt.Errorf("no direction from %s to %s", o.From, o.Tile)
	}
	return c.b.Env.Move(run.handle, dir)
}

// report turns every run into a Result and emits the per-agent visualizer
// intents.
func (c *cycle[H]) report() {
	viz := c.b.Visualizer
	for _, h := range c.handles() {
		run := c.runs[h]
		result := c.resultOf(run)
		c.results.set(h, result)
		c.engine.metrics.Add("results_"+result.Status.String(), 1)

		pos := run.snap.Pos
		switch result.Status {
		case StatusFailed:
			c.summary.Failed++
			movement.AgentFailed(c.ctx, c.pub, c.tick, logging.AgentRef(h), movement.AgentFailurePayload{
				Position: pos,
				Error:    result.Err.Error(),
			})
			if viz != nil && run.active {
				viz.Failed(pos, result.Err)
			}
		case StatusStuck:
			if viz != nil {
				viz.Stuck(pos, result.Ticks)
			}
		case StatusArrived:
			if viz == nil {
				break
			}
			if run.req.Priority == PriorityImmovable {
				viz.Immovable(pos)
			} else if run.req.Anchor != nil {
				viz.Anchor(pos, run.req.Anchor.Pos)
			}
		}
	}
}

func (c *cycle[H]) resultOf(run *agentRun[H]) Result {
	if run.reject != nil {
		return failed(internalError(fmt.Sprintf("move of %v rejected", run.handle), run.reject))
	}
	if run.preset != nil {
		return *run.preset
	}
	if !run.active {
		return moving()
	}
	if c.arrived(run) {
		return arrived()
	}
	if run.update.Failed {
		return failed(&StuckTimeoutError{Ticks: run.state.Stuck.Ticks()})
	}
	if run.moved {
		return moving()
	}
	if run.desired != run.snap.Pos && !run.snap.Fatigued() {
		return stuckFor(run.state.Stuck.Ticks())
	}
	return moving()
}

// arrived checks the agent's end-of-cycle tile against its request.
func (c *cycle[H]) arrived(run *agentRun[H]) bool {
	final := run.final
	switch run.req.Intent {
	case IntentGoTo:
		return final.InRangeTo(run.req.Target, run.req.Range)
	case IntentFollow:
		leader := c.finalPos(run.req.Leader, run.leaderPos)
		if run.req.Offset != nil {
			return final == leader.Add(*run.req.Offset)
		}
		return final.InRangeTo(leader, run.req.Range)
	case IntentFlee:
		return stuck.FleeDistance(final, run.req.Threats) == 0
	case IntentIdle:
		return true
	}
	return false
}
