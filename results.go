package rover

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"rover/internal/pathcache"
)

var (
	// ErrPathNotFound means no complete path to the target exists.
	ErrPathNotFound = pathcache.ErrPathNotFound
	// ErrRegionBlocked means no route of passable regions reaches the target.
	ErrRegionBlocked = pathcache.ErrRegionBlocked
)

// StuckTimeoutError reports an agent that exhausted its escalation ladder.
type StuckTimeoutError struct {
	Ticks uint16
}

func (e *StuckTimeoutError) Error() string {
	return fmt.Sprintf("stuck for %d ticks", e.Ticks)
}

// InternalError wraps an unexpected collaborator failure, such as a stale
// handle or a rejected move.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

// Status is the coarse outcome of a cycle for one agent.
type Status uint8

const (
	StatusMoving Status = iota
	StatusArrived
	StatusStuck
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusMoving:
		return "moving"
	case StatusArrived:
		return "arrived"
	case StatusStuck:
		return "stuck"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is reported for every agent named in a cycle's requests. Ticks is
// set for StatusStuck and Err for StatusFailed.
type Result struct {
	Status Status
	Ticks  uint16
	Err    error
}

func (r Result) String() string {
	switch r.Status {
	case StatusStuck:
		return fmt.Sprintf("stuck(%d)", r.Ticks)
	case StatusFailed:
		return fmt.Sprintf("failed(%v)", r.Err)
	}
	return r.Status.String()
}

func moving() Result  { return Result{Status: StatusMoving} }
func arrived() Result { return Result{Status: StatusArrived} }

func stuckFor(ticks uint16) Result {
	return Result{Status: StatusStuck, Ticks: ticks}
}

func failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// IsStuckTimeout reports whether err is a StuckTimeoutError.
func IsStuckTimeout(err error) bool {
	var timeout *StuckTimeoutError
	return errors.As(err, &timeout)
}

// Results holds the per-agent outcomes of one cycle.
type Results[H cmp.Ordered] struct {
	byHandle map[H]Result
}

func newResults[H cmp.Ordered](size int) *Results[H] {
	return &Results[H]{byHandle: make(map[H]Result, size)}
}

func (r *Results[H]) set(h H, res Result) {
	r.byHandle[h] = res
}

// Get returns the result for h.
func (r *Results[H]) Get(h H) (Result, bool) {
	if r == nil {
		return Result{}, false
	}
	res, ok := r.byHandle[h]
	return res, ok
}

func (r *Results[H]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byHandle)
}

// Handles lists every reported handle in order.
func (r *Results[H]) Handles() []H {
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

// Count returns how many results have status s.
func (r *Results[H]) Count(s Status) int {
	n := 0
	if r == nil {
		return n
	}
	for _, res := range r.byHandle {
		if res.Status == s {
			n++
		}
	}
	return n
}
