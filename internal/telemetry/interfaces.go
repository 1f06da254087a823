// Package telemetry holds the narrow logger and metrics capabilities the
// engine and its adapters report through.
package telemetry

import (
	"log"
	"sync"
)

// Logger exposes the plain-text logging the engine needs for diagnostics
// that are not structured events.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Metrics receives engine counters and gauges by key.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// NopMetrics discards everything.
func NopMetrics() Metrics {
	return nopMetrics{}
}

// Counters is an in-memory Metrics implementation. Store overwrites and Add
// accumulates on the same key.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64
}

func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]uint64)
	}
	c.values[key] += delta
}

func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]uint64)
	}
	c.values[key] = value
}

// Snapshot copies the current values.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Fanout sends every update to each non-nil Metrics.
func Fanout(sinks ...Metrics) Metrics {
	var live multi
	for _, m := range sinks {
		if m != nil {
			live = append(live, m)
		}
	}
	return live
}

type multi []Metrics

func (m multi) Add(key string, delta uint64) {
	for _, s := range m {
		s.Add(key, delta)
	}
}

func (m multi) Store(key string, value uint64) {
	for _, s := range m {
		s.Store(key, value)
	}
}
