package rover

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rover/costsurface"
	"rover/internal/stuck"
	"rover/internal/telemetry"
	"rover/logging"
	"rover/logging/movement"
)

// Deps are the ambient collaborators of an Engine. Every field is optional.
type Deps struct {
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Logger    telemetry.Logger
	Clock     func() time.Time
	// NewTraceID names each cycle's trace. Defaults to a random UUID.
	NewTraceID func() string
}

// Engine runs one movement cycle per Process call. It keeps only its
// configuration and the last tick between cycles.
type Engine[H cmp.Ordered] struct {
	cfg       Config
	overrides map[H]stuck.Thresholds

	publisher logging.Publisher
	metrics   telemetry.Metrics
	logger    telemetry.Logger
	clock     func() time.Time
	newTrace  func() string

	lastTick uint64
	cycles   uint64
}

// New builds an engine from cfg, filling zero values with defaults.
func New[H cmp.Ordered](cfg Config, deps Deps) (*Engine[H], error) {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rover: %w", err)
	}
	e := &Engine[H]{
		cfg:       cfg,
		overrides: make(map[H]stuck.Thresholds),
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		clock:     deps.Clock,
		newTrace:  deps.NewTraceID,
	}
	if e.publisher == nil {
		e.publisher = logging.NopPublisher()
	}
	if e.metrics == nil {
		e.metrics = telemetry.NopMetrics()
	}
	if e.logger == nil {
		e.logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.newTrace == nil {
		e.newTrace = uuid.NewString
	}
	return e, nil
}

// Config returns the active configuration.
func (e *Engine[H]) Config() Config {
	return e.cfg
}

// SetReusePathLength sets how many cycles a generated path is reused. Zero
// restores the default.
func (e *Engine[H]) SetReusePathLength(n uint16) {
	if n == 0 {
		n = DefaultConfig().ReusePathLength
	}
	e.cfg.ReusePathLength = n
}

// SetMaxShoveDepth bounds displacement chains.
func (e *Engine[H]) SetMaxShoveDepth(depth int) error {
	if depth < MinShoveDepth || depth > MaxShoveDepth {
		return fmt.Errorf("rover: max shove depth %d outside [%d, %d]", depth, MinShoveDepth, MaxShoveDepth)
	}
	e.cfg.MaxShoveDepth = depth
	return nil
}

// SetAvoidanceRadius sets the radius used by the avoid-nearby tier. Zero
// restores the default.
func (e *Engine[H]) SetAvoidanceRadius(radius uint8) {
	if radius == 0 {
		radius = DefaultAvoidanceRadius
	}
	e.cfg.AvoidanceRadius = radius
}

// SetThresholds replaces the global escalation ladder.
func (e *Engine[H]) SetThresholds(t stuck.Thresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("rover: %w", err)
	}
	e.cfg.Thresholds = t
	return nil
}

// SetAgentThresholds overrides the ladder for one agent.
func (e *Engine[H]) SetAgentThresholds(h H, t stuck.Thresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("rover: agent %v: %w", h, err)
	}
	e.overrides[h] = t
	return nil
}

// ClearAgentThresholds drops a per-agent override.
func (e *Engine[H]) ClearAgentThresholds(h H) {
	delete(e.overrides, h)
}

func (e *Engine[H]) thresholdsFor(h H) stuck.Thresholds {
	if t, ok := e.overrides[h]; ok {
		return t
	}
	return e.cfg.Thresholds
}

// Process runs one cycle over reqs and returns a result for every requested
// agent. ctx scopes the cycle's log events; the cycle always runs to
// completion.
func (e *Engine[H]) Process(ctx context.Context, reqs *Requests[H], b Bindings[H]) *Results[H] {
	if ctx == nil {
		ctx = context.Background()
	}
	started := e.clock()

	tick := b.Tick
	if e.cycles > 0 && tick <= e.lastTick {
		tick = e.lastTick + 1
	}
	e.lastTick = tick
	e.cycles++

	cache := b.Cache
	if cache == nil {
		cache = costsurface.NewCache()
	}
	cache.Advance(tick)

	handles := reqs.Handles()
	c := &cycle[H]{
		engine:  e,
		ctx:     ctx,
		pub:     logging.WithTrace(e.publisher, e.newTrace()),
		tick:    tick,
		b:       b,
		cache:   cache,
		runs:    make(map[H]*agentRun[H], len(handles)),
		results: newResults[H](len(handles)),
	}

	if b.Env == nil || b.States == nil {
		err := internalError("bindings missing environment or state store", nil)
		for _, h := range handles {
			c.results.set(h, failed(err))
		}
		e.logger.Printf("rover: cycle %d skipped: %v", tick, err)
		return c.results
	}

	c.load(reqs, handles)
	for _, h := range c.sortFollowers(handles) {
		c.desire(c.runs[h])
	}
	resolution := c.resolve()
	c.execute(resolution)
	c.report()

	elapsed := e.clock().Sub(started)
	c.summary.DurationMicros = elapsed.Microseconds()
	c.summary.Requests = len(handles)
	c.summary.Moves = resolution.Stats.Moves
	c.summary.Swaps = resolution.Stats.Swaps
	c.summary.Shoves = resolution.Stats.Shoves
	c.summary.Avoids = resolution.Stats.Avoids
	c.summary.Stays = resolution.Stats.Stays
	movement.CycleCompleted(ctx, c.pub, tick, c.summary)

	e.metrics.Add("cycles", 1)
	e.metrics.Add("swaps", uint64(resolution.Stats.Swaps))
	e.metrics.Add("shoves", uint64(resolution.Stats.Shoves))
	e.metrics.Add("avoidances", uint64(resolution.Stats.Avoids))
	e.metrics.Add("stays", uint64(resolution.Stats.Stays))
	e.metrics.Store("agents", uint64(c.summary.Agents))
	if elapsed > 0 {
		e.metrics.Store("last_cycle_micros", uint64(elapsed.Microseconds()))
	}
	return c.results
}
