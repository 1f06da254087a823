// Package visual collects the engine's visualizer intents into per-cycle
// frames and ships them to websocket clients or a NATS subject.
package visual

import (
	"errors"
	"sync"

	"rover"
	"rover/grid"
)

// Kind names a visualizer intent.
type Kind string

const (
	KindPath      Kind = "path"
	KindAnchor    Kind = "anchor"
	KindImmovable Kind = "immovable"
	KindStuck     Kind = "stuck"
	KindFailed    Kind = "failed"
)

// Intent is one visualizer callback.
type Intent struct {
	Kind   Kind            `json:"kind"`
	Pos    grid.Position   `json:"pos"`
	Steps  []grid.Position `json:"steps,omitempty"`
	Anchor *grid.Position  `json:"anchor,omitempty"`
	Ticks  uint16          `json:"ticks,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Frame is every intent of one cycle.
type Frame struct {
	Tick    uint64   `json:"tick"`
	Intents []Intent `json:"intents"`
}

// Publisher ships frames somewhere.
type Publisher interface {
	Publish(frame Frame) error
}

// Recorder is a rover.Visualizer that buffers intents until Flush.
type Recorder struct {
	mu      sync.Mutex
	pending []Intent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(in Intent) {
	r.mu.Lock()
	r.pending = append(r.pending, in)
	r.mu.Unlock()
}

func (r *Recorder) Path(pos grid.Position, steps []grid.Position) {
	r.record(Intent{Kind: KindPath, Pos: pos, Steps: append([]grid.Position(nil), steps...)})
}

func (r *Recorder) Anchor(pos, anchor grid.Position) {
	r.record(Intent{Kind: KindAnchor, Pos: pos, Anchor: &anchor})
}

func (r *Recorder) Immovable(pos grid.Position) {
	r.record(Intent{Kind: KindImmovable, Pos: pos})
}

func (r *Recorder) Stuck(pos grid.Position, ticks uint16) {
	r.record(Intent{Kind: KindStuck, Pos: pos, Ticks: ticks})
}

func (r *Recorder) Failed(pos grid.Position, err error) {
	in := Intent{Kind: KindFailed, Pos: pos}
	if err != nil {
		in.Error = err.Error()
	}
	r.record(in)
}

// Pending copies the intents recorded since the last Flush.
func (r *Recorder) Pending() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Intent(nil), r.pending...)
}

// Flush returns the buffered intents as the frame for tick and empties the
// buffer.
func (r *Recorder) Flush(tick uint64) Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame := Frame{Tick: tick, Intents: r.pending}
	if frame.Intents == nil {
		frame.Intents = []Intent{}
	}
	r.pending = nil
	return frame
}

// Broadcast publishes frame to every publisher and joins their errors.
func Broadcast(frame Frame, pubs ...Publisher) error {
	var errs []error
	for _, p := range pubs {
		if p == nil {
			continue
		}
		if err := p.Publish(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type multi []rover.Visualizer

// Multi fans every callback out to each non-nil visualizer.
func Multi(vs ...rover.Visualizer) rover.Visualizer {
	out := make(multi, 0, len(vs))
	for _, v := range vs {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (m multi) Path(pos grid.Position, steps []grid.Position) {
	for _, v := range m {
		v.Path(pos, steps)
	}
}

func (m multi) Anchor(pos, anchor grid.Position) {
	for _, v := range m {
		v.Anchor(pos, anchor)
	}
}

func (m multi) Immovable(pos grid.Position) {
	for _, v := range m {
		v.Immovable(pos)
	}
}

func (m multi) Stuck(pos grid.Position, ticks uint16) {
	for _, v := range m {
		v.Stuck(pos, ticks)
	}
}

func (m multi) Failed(pos grid.Position, err error) {
	for _, v := range m {
		v.Failed(pos, err)
	}
}
