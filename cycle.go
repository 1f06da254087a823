package rover

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"rover/costsurface"
	"rover/grid"
	"rover/internal/depsort"
	"rover/internal/stuck"
	"rover/logging"
	"rover/logging/movement"
)

// agentRun is the working state of one agent for the duration of a cycle.
type agentRun[H cmp.Ordered] struct {
	handle H
	req    Request[H]
	snap   AgentSnapshot
	state  *AgentState
	limits stuck.Thresholds

	// active agents take part in resolution.
	active  bool
	desired grid.Position
	// pulled followers move into their leader's vacated tile by a pull.
	pulled bool
	// leaderPos is the leader's tile when the leader has no run this cycle.
	leaderPos grid.Position
	update    stuck.Update

	// preset is a result decided before execution.
	preset *Result
	moved  bool
	final  grid.Position
	reject error
}

func (r *agentRun[H]) fail(err error) {
	res := failed(err)
	r.preset = &res
}

// cycle is the transient state of one Process call.
type cycle[H cmp.Ordered] struct {
	engine  *Engine[H]
	ctx     context.Context
	pub     logging.Publisher
	tick    uint64
	b       Bindings[H]
	cache   *costsurface.Cache
	runs    map[H]*agentRun[H]
	results *Results[H]
	summary movement.CyclePayload
}

func (c *cycle[H]) load(reqs *Requests[H], handles []H) {
	for _, h := range handles {
		req := *reqs.byHandle[h]
		run := &agentRun[H]{handle: h, req: req, limits: c.engine.thresholdsFor(h)}
		c.runs[h] = run

		snap, err := c.b.Env.Agent(h)
		if err != nil {
			run.fail(internalError(fmt.Sprintf("agent %v", h), err))
			continue
		}
		if snap.Inactive {
			res := moving()
			run.preset = &res
			continue
		}
		st := c.b.States.State(h)
		if st == nil {
			run.snap = snap
			run.fail(internalError(fmt.Sprintf("agent %v has no movement state", h), nil))
			continue
		}
		run.snap = snap
		run.state = st
		run.desired = snap.Pos
		run.final = snap.Pos
		run.active = true
		c.summary.Agents++
	}
}

// sortFollowers orders active agents leaders-first and converts every agent
// on a follow cycle into a GoTo toward its cached target.
func (c *cycle[H]) sortFollowers(handles []H) []H {
	nodes := make([]depsort.Node[H], 0, len(handles))
	for _, h := range handles {
		run := c.runs[h]
		if !run.active {
			continue
		}
		nodes = append(nodes, depsort.Node[H]{
			Handle:  h,
			Leader:  run.req.Leader,
			Follows: run.req.Intent == IntentFollow,
		})
	}
	sorted := depsort.Sort(nodes)
	for _, members := range sorted.Cycles {
		refs := make([]logging.EntityRef, 0, len(members))
		for _, h := range members {
			run := c.runs[h]
			run.req.Intent = IntentGoTo
			run.req.Pull = false
			run.req.Offset = nil
			if !run.state.Path.Empty() {
				run.req.Target = run.state.Path.Target
				run.req.Range = run.state.Path.Range
			} else {
				run.req.Target = run.snap.Pos
				run.req.Range = 0
			}
			refs = append(refs, logging.AgentRef(h))
		}
		movement.FollowCycleBroken(c.ctx, c.pub, c.tick, refs)
		c.engine.metrics.Add("follow_cycles_broken", 1)
	}
	return sorted.Order
}

// finalPos is where h ends the cycle, as far as the engine knows.
func (c *cycle[H]) finalPos(h H, fallback grid.Position) grid.Position {
	if run, ok := c.runs[h]; ok && run.active {
		return run.final
	}
	return fallback
}

func (c *cycle[H]) walkable(p grid.Position) bool {
	if c.b.Router == nil {
		return true
	}
	return c.b.Router.Walkable(p)
}

func (c *cycle[H]) handles() []H {
	out := make([]H, 0, len(c.runs))
	for h := range c.runs {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}
