package movement

import (
	"context"

	"rover/grid"
	"rover/logging"
)

const (
	// EventCycleCompleted summarises one engine cycle.
	EventCycleCompleted logging.EventType = "movement.cycle_completed"
	// EventPathGenerated is emitted when a fresh path replaces the cache.
	EventPathGenerated logging.EventType = "movement.path_generated"
	// EventPathFailed is emitted when no path could be produced.
	EventPathFailed logging.EventType = "movement.path_failed"
	// EventAgentFailed is emitted when an agent's result is Failed.
	EventAgentFailed logging.EventType = "movement.agent_failed"
	// EventEscalated is emitted when an agent climbs the stuck ladder.
	EventEscalated logging.EventType = "movement.escalated"
	// EventFollowCycleBroken is emitted when a follow cycle is converted.
	EventFollowCycleBroken logging.EventType = "movement.follow_cycle_broken"
	// EventExecutionRejected is emitted when the environment refuses a move.
	EventExecutionRejected logging.EventType = "movement.execution_rejected"
)

// CyclePayload counts what happened in a cycle.
type CyclePayload struct {
	Agents         int   `json:"agents"`
	Requests       int   `json:"requests"`
	Moves          int   `json:"moves"`
	Swaps          int   `json:"swaps"`
	Shoves         int   `json:"shoves"`
	Avoids         int   `json:"avoids"`
	Stays          int   `json:"stays"`
	PathsGenerated int   `json:"pathsGenerated"`
	PathFailures   int   `json:"pathFailures"`
	Failed         int   `json:"failed"`
	DurationMicros int64 `json:"durationMicros"`
}

// CycleCompleted publishes the end-of-cycle summary.
func CycleCompleted(ctx context.Context, pub logging.Publisher, tick uint64, payload CyclePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCycleCompleted,
		Tick:     tick,
		Actor:    logging.EngineRef(),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMovement,
		Payload:  payload,
	})
}

// PathPayload describes a generated path.
type PathPayload struct {
	From   grid.Position `json:"from"`
	Target grid.Position `json:"target"`
	Range  uint32        `json:"range"`
	Steps  int           `json:"steps"`
	Ops    int           `json:"ops"`
	Reason string        `json:"reason"`
	Flee   bool          `json:"flee,omitempty"`
}

// PathGenerated publishes a successful path generation.
func PathGenerated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PathPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathGenerated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryPathing,
		Payload:  payload,
	})
}

// PathFailurePayload describes a failed generation.
type PathFailurePayload struct {
	From   grid.Position `json:"from"`
	Target grid.Position `json:"target"`
	Error  string        `json:"error"`
}

// PathFailed publishes a failed path generation.
func PathFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PathFailurePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPathing,
		Payload:  payload,
	})
}

// AgentFailurePayload carries the failure reason.
type AgentFailurePayload struct {
	Position grid.Position `json:"position"`
	Error    string        `json:"error"`
}

// AgentFailed publishes a Failed result.
func AgentFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AgentFailurePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAgentFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryMovement,
		Payload:  payload,
	})
}

// EscalationPayload records a tier change.
type EscalationPayload struct {
	Tier       string        `json:"tier"`
	Immobile   uint16        `json:"immobile"`
	NoProgress uint16        `json:"noProgress"`
	Position   grid.Position `json:"position"`
}

// Escalated publishes a stuck-tier increase.
func Escalated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EscalationPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEscalated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMovement,
		Payload:  payload,
	})
}

// FollowCycleBroken publishes the members of a broken follow cycle. The
// first member is the actor; the rest are targets.
func FollowCycleBroken(ctx context.Context, pub logging.Publisher, tick uint64, members []logging.EntityRef) {
	if pub == nil || len(members) == 0 {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFollowCycleBroken,
		Tick:     tick,
		Actor:    members[0],
		Targets:  append([]logging.EntityRef(nil), members[1:]...),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryMovement,
		Payload:  map[string]int{"size": len(members)},
	})
}

// RejectionPayload records a move the environment refused.
type RejectionPayload struct {
	From      grid.Position `json:"from"`
	To        grid.Position `json:"to"`
	Direction string        `json:"direction"`
	Pull      bool          `json:"pull,omitempty"`
	Error     string        `json:"error"`
}

// ExecutionRejected publishes an environment rejection.
func ExecutionRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RejectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventExecutionRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryMovement,
		Payload:  payload,
	})
}
