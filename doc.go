// Package rover coordinates single-step movement for many agents on a grid
// of fixed-size regions.
//
// Each cycle the caller collects one request per agent in a Requests value
// and hands it to Engine.Process together with the Bindings that connect the
// engine to the world. Process orders follow chains, computes a desired tile
// for every agent from its cached path, resolves contention globally and
// issues the resulting moves. It returns one Result per agent.
//
// The engine owns no world state. Per-agent paths and stuck counters live in
// a caller-owned StateStore, and the raw cost-surface layers live in a
// caller-owned costsurface.Cache.
package rover
