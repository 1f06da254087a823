package rover

import (
	"cmp"
	"slices"

	"rover/internal/pathcache"
	"rover/internal/stuck"
)

// AgentState is the per-agent movement memory carried between cycles.
type AgentState struct {
	Path  pathcache.Entry `json:"path"`
	Stuck stuck.Counters  `json:"stuck"`
}

// MapStore is an in-memory StateStore.
type MapStore[H cmp.Ordered] struct {
	states map[H]*AgentState
}

func NewMapStore[H cmp.Ordered]() *MapStore[H] {
	return &MapStore[H]{states: make(map[H]*AgentState)}
}

// State returns the state for h, creating it if needed.
func (s *MapStore[H]) State(h H) *AgentState {
	if s.states == nil {
		s.states = make(map[H]*AgentState)
	}
	st, ok := s.states[h]
	if !ok {
		st = &AgentState{}
		s.states[h] = st
	}
	return st
}

// Lookup returns the state for h without creating one.
func (s *MapStore[H]) Lookup(h H) (*AgentState, bool) {
	st, ok := s.states[h]
	return st, ok
}

// Put replaces the state for h.
func (s *MapStore[H]) Put(h H, st AgentState) {
	if s.states == nil {
		s.states = make(map[H]*AgentState)
	}
	s.states[h] = &st
}

// Delete forgets h.
func (s *MapStore[H]) Delete(h H) {
	delete(s.states, h)
}

// Handles lists stored handles in order.
func (s *MapStore[H]) Handles() []H {
	out := make([]H, 0, len(s.states))
	for h := range s.states {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

func (s *MapStore[H]) Len() int {
	return len(s.states)
}
