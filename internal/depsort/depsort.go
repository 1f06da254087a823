// Package depsort orders agents so that every leader is processed before its
// followers, breaking follow cycles deterministically.
package depsort

import (
	"cmp"
	"slices"
)

// Node is one agent. Leader is only meaningful when Follows is set.
type Node[H cmp.Ordered] struct {
	Handle  H
	Leader  H
	Follows bool
}

// Result is a leaders-first order over every node plus the follow cycles
// that had to be broken. Each cycle is listed in handle order; cycles are
// ordered by their smallest handle.
type Result[H cmp.Ordered] struct {
	Order  []H
	Cycles [][]H
}

// Broken reports whether h was on a broken cycle.
func (r Result[H]) Broken(h H) bool {
	for _, c := range r.Cycles {
		if _, ok := slices.BinarySearch(c, h); ok {
			return true
		}
	}
	return false
}

// Sort runs Kahn's algorithm over follower->leader edges, taking ready nodes
// in handle order. Nodes left over sit on or behind a cycle; cycle members
// are detached from their leaders and the sort is repeated.
func Sort[H cmp.Ordered](nodes []Node[H]) Result[H] {
	leaders := make(map[H]H, len(nodes))
	present := make(map[H]bool, len(nodes))
	handles := make([]H, 0, len(nodes))
	for _, n := range nodes {
		if present[n.Handle] {
			continue
		}
		present[n.Handle] = true
		handles = append(handles, n.Handle)
	}
	for _, n := range nodes {
		if n.Follows && present[n.Leader] {
			leaders[n.Handle] = n.Leader
		}
	}
	slices.Sort(handles)

	order, rest := kahn(handles, leaders)
	if len(rest) == 0 {
		return Result[H]{Order: order}
	}

	cycles := findCycles(rest, leaders)
	for _, c := range cycles {
		for _, h := range c {
			delete(leaders, h)
		}
	}
	order, _ = kahn(handles, leaders)
	return Result[H]{Order: order, Cycles: cycles}
}

func kahn[H cmp.Ordered](handles []H, leaders map[H]H) ([]H, []H) {
	indegree := make(map[H]int, len(handles))
	followers := make(map[H][]H)
	for _, h := range handles {
		if l, ok := leaders[h]; ok {
			indegree[h]++
			followers[l] = append(followers[l], h)
		}
	}

	var ready []H
	for _, h := range handles {
		if indegree[h] == 0 {
			ready = append(ready, h)
		}
	}

	order := make([]H, 0, len(handles))
	for len(ready) > 0 {
		h := ready[0]
		ready = ready[1:]
		order = append(order, h)
		for _, f := range followers[h] {
			indegree[f]--
			if indegree[f] == 0 {
				i, _ := slices.BinarySearch(ready, f)
				ready = slices.Insert(ready, i, f)
			}
		}
	}

	var rest []H
	for _, h := range handles {
		if indegree[h] > 0 {
			rest = append(rest, h)
		}
	}
	return order, rest
}

// findCycles walks leader pointers from each leftover node. Every node has
// at most one leader, so each walk ends in exactly one cycle.
func findCycles[H cmp.Ordered](rest []H, leaders map[H]H) [][]H {
	const (
		unseen = iota
		walking
		settled
	)
	state := make(map[H]int, len(rest))
	var cycles [][]H
	for _, start := range rest {
		if state[start] != unseen {
			continue
		}
		var trail []H
		h := start
		for {
			if state[h] == walking {
				i := slices.Index(trail, h)
				cycle := slices.Clone(trail[i:])
				slices.Sort(cycle)
				cycles = append(cycles, cycle)
				break
			}
			if state[h] == settled {
				break
			}
			state[h] = walking
			trail = append(trail, h)
			next, ok := leaders[h]
			if !ok {
				break
			}
			h = next
		}
		for _, t := range trail {
			state[t] = settled
		}
	}
	slices.SortFunc(cycles, func(a, b []H) int { return cmp.Compare(a[0], b[0]) })
	return cycles
}
