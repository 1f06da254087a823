// Package stuck tracks how long an agent has failed to move or make progress
// and maps that onto an escalation ladder.
package stuck

import (
	"fmt"

	"rover/grid"
)

// Tier is a rung of the escalation ladder.
type Tier uint8

const (
	TierNone Tier = iota
	// TierAvoidNearby treats same-population agents within the avoidance
	// radius as obstacles.
	TierAvoidNearby
	// TierAvoidAll treats every same-population agent as an obstacle.
	TierAvoidAll
	// TierIncreaseOps raises the search budget.
	TierIncreaseOps
	// TierShove grants persistent shove rights.
	TierShove
	// TierFail reports a stuck timeout.
	TierFail
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierAvoidNearby:
		return "avoid_nearby"
	case TierAvoidAll:
		return "avoid_all"
	case TierIncreaseOps:
		return "increase_ops"
	case TierShove:
		return "shove"
	case TierFail:
		return "fail"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Thresholds are immobile-cycle counts at which each tier starts. Repath is a
// no-progress count.
type Thresholds struct {
	AvoidNearby uint16 `yaml:"avoid_nearby" json:"avoid_nearby"`
	AvoidAll    uint16 `yaml:"avoid_all" json:"avoid_all"`
	IncreaseOps uint16 `yaml:"increase_ops" json:"increase_ops"`
	Shove       uint16 `yaml:"shove" json:"shove"`
	Fail        uint16 `yaml:"fail" json:"fail"`
	Repath      uint16 `yaml:"repath" json:"repath"`
}

// DefaultThresholds returns the stock escalation ladder.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AvoidNearby: 2,
		AvoidAll:    3,
		IncreaseOps: 4,
		Shove:       5,
		Fail:        20,
		Repath:      8,
	}
}

// Validate checks that the ladder is non-decreasing and non-zero.
func (t Thresholds) Validate() error {
	ladder := []uint16{t.AvoidNearby, t.AvoidAll, t.IncreaseOps, t.Shove, t.Fail}
	for i, v := range ladder {
		if v == 0 {
			return fmt.Errorf("stuck: threshold for %s is zero", Tier(i+1))
		}
		if i > 0 && v < ladder[i-1] {
			return fmt.Errorf("stuck: threshold for %s (%d) below %s (%d)", Tier(i+1), v, Tier(i), ladder[i-1])
		}
	}
	if t.Repath == 0 {
		return fmt.Errorf("stuck: repath threshold is zero")
	}
	return nil
}

// TierFor maps an immobile count onto the ladder.
func (t Thresholds) TierFor(immobile uint16) Tier {
	switch {
	case t.Fail > 0 && immobile >= t.Fail:
		return TierFail
	case t.Shove > 0 && immobile >= t.Shove:
		return TierShove
	case t.IncreaseOps > 0 && immobile >= t.IncreaseOps:
		return TierIncreaseOps
	case t.AvoidAll > 0 && immobile >= t.AvoidAll:
		return TierAvoidAll
	case t.AvoidNearby > 0 && immobile >= t.AvoidNearby:
		return TierAvoidNearby
	}
	return TierNone
}

// Persistent reports whether immobile reaches the shove threshold.
func (t Thresholds) Persistent(immobile uint16) bool {
	return t.Shove > 0 && immobile >= t.Shove
}

// Key identifies what the agent is trying to reach. Counters reset when it
// changes.
type Key struct {
	Target grid.Position `json:"target"`
	Range  uint32        `json:"range"`
	Flee   bool          `json:"flee,omitempty"`
	// Follow keys a follower, whose target moves with its leader.
	Follow bool `json:"follow,omitempty"`
}

// Counters is the per-agent stuck state.
type Counters struct {
	Immobile   uint16        `json:"immobile"`
	NoProgress uint16        `json:"no_progress"`
	Tier       Tier          `json:"tier"`
	Key        Key           `json:"key"`
	LastPos    grid.Position `json:"last_pos"`
	// LastDistance is the previous cycle's progress metric.
	LastDistance float64 `json:"last_distance"`
	Tracking     bool    `json:"tracking"`
}

// Observation is one cycle's view of an agent.
type Observation struct {
	Key      Key
	Pos      grid.Position
	Distance float64
	Fatigued bool
}

// Update describes what changed in Observe.
type Update struct {
	Tier        Tier
	Escalated   bool
	ForceRepath bool
	Failed      bool
	Reset       bool
}

// Reset clears every counter.
func (c *Counters) Reset() {
	*c = Counters{}
}

// Observe folds one cycle into the counters. Fatigued observations freeze
// the counters; a new key resets them.
func (c *Counters) Observe(obs Observation, t Thresholds) Update {
	if !c.Tracking || c.Key != obs.Key {
		*c = Counters{
			Key:          obs.Key,
			LastPos:      obs.Pos,
			LastDistance: obs.Distance,
			Tracking:     true,
		}
		return Update{Reset: true}
	}
	if obs.Fatigued {
		return Update{Tier: c.Tier, Failed: c.Tier == TierFail}
	}

	if obs.Pos != c.LastPos {
		c.Immobile = 0
	} else if c.Immobile < ^uint16(0) {
		c.Immobile++
	}
	c.LastPos = obs.Pos

	if obs.Distance < c.LastDistance {
		c.NoProgress = 0
	} else if c.NoProgress < ^uint16(0) {
		c.NoProgress++
	}
	c.LastDistance = obs.Distance

	prev := c.Tier
	c.Tier = t.TierFor(c.Immobile)
	up := Update{
		Tier:      c.Tier,
		Escalated: c.Tier > prev,
		Failed:    c.Tier == TierFail,
	}
	if up.Escalated && c.Tier >= TierAvoidNearby && c.Tier <= TierIncreaseOps {
		up.ForceRepath = true
	}
	if c.Tier != TierFail && t.Repath > 0 && c.NoProgress > 0 && c.NoProgress%t.Repath == 0 {
		up.ForceRepath = true
	}
	return up
}

// Ticks is the number of cycles reported in a stuck result for an agent that
// stayed this cycle.
func (c *Counters) Ticks() uint16 {
	if c.Immobile == ^uint16(0) {
		return c.Immobile
	}
	return c.Immobile + 1
}

// FleeDistance is the flee progress metric: the deepest intrusion into any
// threat's range, zero once clear of all of them.
func FleeDistance(pos grid.Position, threats []Threat) float64 {
	worst := 0
	for _, th := range threats {
		d := int(pos.RangeTo(th.Pos))
		if depth := int(th.Range) + 1 - d; depth > worst {
			worst = depth
		}
	}
	return float64(worst)
}

// Threat is a position to stay more than Range tiles away from.
type Threat struct {
	Pos   grid.Position
	Range uint32
}
