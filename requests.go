package rover

import (
	"cmp"
	"slices"

	"rover/costsurface"
	"rover/grid"
	"rover/internal/resolve"
	"rover/internal/stuck"
	"rover/search"
)

// Priority orders agents competing for a tile.
type Priority = resolve.Priority

const (
	PriorityLow       = resolve.PriorityLow
	PriorityNormal    = resolve.PriorityNormal
	PriorityHigh      = resolve.PriorityHigh
	PriorityImmovable = resolve.PriorityImmovable
)

// Anchor confines every resolved position of an agent to within Range of Pos.
type Anchor = resolve.Anchor

// Threat is a position a fleeing agent stays more than Range tiles from.
type Threat = stuck.Threat

// Intent selects the request variant.
type Intent uint8

const (
	IntentGoTo Intent = iota
	IntentFollow
	IntentFlee
	// IntentIdle registers an agent that only occupies its tile.
	IntentIdle
)

func (i Intent) String() string {
	switch i {
	case IntentGoTo:
		return "goto"
	case IntentFollow:
		return "follow"
	case IntentFlee:
		return "flee"
	case IntentIdle:
		return "idle"
	}
	return "unknown"
}

// Request is one agent's movement intent for a cycle.
type Request[H cmp.Ordered] struct {
	Intent Intent

	Target grid.Position
	Range  uint32

	Leader H
	Pull   bool
	// Offset places a follower at a fixed vector from its leader instead of
	// directly behind it.
	Offset *grid.Vector

	Threats []Threat

	Priority   Priority
	AllowShove bool
	AllowSwap  bool
	Anchor     *Anchor
	Visualize  bool

	Surface *costsurface.Options
	Route   search.RouteOptions
}

func defaultRequest[H cmp.Ordered](intent Intent) *Request[H] {
	return &Request[H]{
		Intent:     intent,
		Priority:   PriorityNormal,
		AllowShove: true,
		AllowSwap:  true,
	}
}

// Requests collects the intents of one cycle. A later request for a handle
// replaces the earlier one.
type Requests[H cmp.Ordered] struct {
	byHandle map[H]*Request[H]
}

func NewRequests[H cmp.Ordered]() *Requests[H] {
	return &Requests[H]{byHandle: make(map[H]*Request[H])}
}

func (r *Requests[H]) put(h H, req *Request[H]) *RequestBuilder[H] {
	if r.byHandle == nil {
		r.byHandle = make(map[H]*Request[H])
	}
	r.byHandle[h] = req
	return &RequestBuilder[H]{req: req}
}

// MoveTo asks h to reach target. Range defaults to zero.
func (r *Requests[H]) MoveTo(h H, target grid.Position) *RequestBuilder[H] {
	req := defaultRequest[H](IntentGoTo)
	req.Target = target
	return r.put(h, req)
}

// Follow asks h to trail leader. Range defaults to one.
func (r *Requests[H]) Follow(h, leader H) *RequestBuilder[H] {
	req := defaultRequest[H](IntentFollow)
	req.Leader = leader
	req.Range = 1
	return r.put(h, req)
}

// Flee asks h to leave the range of every threat.
func (r *Requests[H]) Flee(h H, threats ...Threat) *RequestBuilder[H] {
	req := defaultRequest[H](IntentFlee)
	req.Threats = append([]Threat(nil), threats...)
	return r.put(h, req)
}

// Idle registers h as a stationary participant that other agents may shove.
// Idle agents default to low priority.
func (r *Requests[H]) Idle(h H) *RequestBuilder[H] {
	req := defaultRequest[H](IntentIdle)
	req.Priority = PriorityLow
	req.AllowSwap = false
	return r.put(h, req)
}

// Get returns the request recorded for h.
func (r *Requests[H]) Get(h H) (Request[H], bool) {
	req, ok := r.byHandle[h]
	if !ok {
		return Request[H]{}, false
	}
	return *req, true
}

func (r *Requests[H]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byHandle)
}

// Handles lists every handle with a request, in order.
func (r *Requests[H]) Handles() []H {
	if r == nil {
		return nil
	}
	out := make([]H, 0, len(r.byHandle))
	for h := range r.byHandle {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// RequestBuilder adjusts the request it was returned for.
type RequestBuilder[H cmp.Ordered] struct {
	req *Request[H]
}

func (b *RequestBuilder[H]) Range(r uint32) *RequestBuilder[H] {
	b.req.Range = r
	return b
}

func (b *RequestBuilder[H]) Priority(p Priority) *RequestBuilder[H] {
	b.req.Priority = p
	return b
}

func (b *RequestBuilder[H]) AllowShove(allow bool) *RequestBuilder[H] {
	b.req.AllowShove = allow
	return b
}

func (b *RequestBuilder[H]) AllowSwap(allow bool) *RequestBuilder[H] {
	b.req.AllowSwap = allow
	return b
}

func (b *RequestBuilder[H]) Anchor(pos grid.Position, rng uint32) *RequestBuilder[H] {
	b.req.Anchor = &Anchor{Pos: pos, Range: rng}
	return b
}

// Visualize reports the agent's planned path to the visualizer.
func (b *RequestBuilder[H]) Visualize() *RequestBuilder[H] {
	b.req.Visualize = true
	return b
}

// Pull lets a fatigued follower be pulled by its leader.
func (b *RequestBuilder[H]) Pull() *RequestBuilder[H] {
	b.req.Pull = true
	return b
}

func (b *RequestBuilder[H]) Offset(v grid.Vector) *RequestBuilder[H] {
	b.req.Offset = &v
	return b
}

// SurfaceOptions overrides the engine's default cost-surface composition.
func (b *RequestBuilder[H]) SurfaceOptions(opts costsurface.Options) *RequestBuilder[H] {
	b.req.Surface = &opts
	return b
}

func (b *RequestBuilder[H]) RouteOptions(opts search.RouteOptions) *RequestBuilder[H] {
	b.req.Route = opts
	return b
}

// Request returns a copy of the request being built.
func (b *RequestBuilder[H]) Request() Request[H] {
	return *b.req
}
