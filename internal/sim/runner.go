package sim

import (
	"context"
	"fmt"
	"time"

	"rover"
	"rover/costsurface"
)

// Runner drives a scenario: one engine cycle and one world commit per step.
type Runner struct {
	Scenario   *Scenario
	World      *World
	Engine     *rover.Engine[string]
	States     *rover.MapStore[string]
	Cache      *costsurface.Cache
	Visualizer rover.Visualizer

	// Interval paces Run. Zero steps as fast as possible.
	Interval time.Duration

	// OnCycle, when set, sees every cycle's results after the commit.
	OnCycle func(tick uint64, results *rover.Results[string])
}

// NewRunner builds the scenario's world and an engine configured from it.
func NewRunner(s *Scenario, deps rover.Deps) (*Runner, error) {
	w, err := s.Build()
	if err != nil {
		return nil, err
	}
	engine, err := rover.New[string](s.Engine, deps)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	for _, a := range s.Agents {
		if a.Thresholds == nil {
			continue
		}
		if err := engine.SetAgentThresholds(a.Name, *a.Thresholds); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return &Runner{
		Scenario: s,
		World:    w,
		Engine:   engine,
		States:   rover.NewMapStore[string](),
		Cache:    costsurface.NewCache(),
	}, nil
}

// Step runs one cycle and commits the resulting moves. A collision is
// returned together with the cycle's results.
func (r *Runner) Step(ctx context.Context) (*rover.Results[string], error) {
	reqs := r.Scenario.Requests(r.World)
	tick := r.World.Tick()
	results := r.Engine.Process(ctx, reqs, r.World.Bindings(r.States, r.Cache, r.Visualizer))
	if err := r.World.Commit(); err != nil {
		return results, fmt.Errorf("tick %d: %w", tick, err)
	}
	if r.OnCycle != nil {
		r.OnCycle(tick, results)
	}
	return results, nil
}

// Run steps until the scenario's cycle count is reached, every agent has
// arrived, or ctx is done. It returns the last cycle's results.
func (r *Runner) Run(ctx context.Context) (*rover.Results[string], error) {
	cycles := r.Scenario.Cycles
	if cycles <= 0 {
		cycles = 100
	}
	var pace <-chan time.Time
	if r.Interval > 0 {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()
		pace = ticker.C
	}
	var last *rover.Results[string]
	for i := 0; i < cycles; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if pace != nil && i > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-pace:
			}
		}
		results, err := r.Step(ctx)
		last = results
		if err != nil {
			return last, err
		}
		if results.Len() > 0 && results.Count(rover.StatusArrived) == results.Len() {
			break
		}
	}
	return last, nil
}
