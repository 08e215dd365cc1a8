// Package metrics computes per-target graph metrics once per build run. The
// snapshot for a target travels with every result reported for it.
package metrics

import (
	"github.com/papapumpkin/cascade/internal/graph"
)

// Metric keys present in every module snapshot.
const (
	KeyDepsTotal       = "deps_total"       // transitive dependencies
	KeyDependentsTotal = "dependents_total" // transitive dependents
	KeyDepth           = "depth"            // longest dependency chain ending at the target, in nodes
	KeyBetweenness     = "betweenness"      // normalized betweenness centrality, when enabled
)

// Options selects the optional, more expensive metrics.
type Options struct {
	// Betweenness enables centrality scoring. It costs O(V·E).
	Betweenness bool
}

// Table maps module uids to their metric snapshots. It is read-only after
// Compute returns and safe for concurrent use.
type Table map[string]map[string]float64

// Compute builds the metric table for every module node of idx.
func Compute(idx *graph.Index, opts Options) Table {
	table := make(Table, len(idx.Modules()))
	depths := newDepthMemo(idx)

	var centrality map[string]float64
	if opts.Betweenness {
		centrality = betweenness(idx)
	}

	for _, uid := range idx.Modules() {
		snap := map[string]float64{
			KeyDepsTotal:       float64(reachable(uid, idx.Deps)),
			KeyDependentsTotal: float64(reachable(uid, idx.ReverseDeps)),
			KeyDepth:           float64(depths.depth(uid)),
		}
		if centrality != nil {
			snap[KeyBetweenness] = centrality[uid]
		}
		table[uid] = snap
	}
	return table
}

// Lookup returns a copy of the snapshot for uid, or an empty map when the
// table has none.
func (t Table) Lookup(uid string) map[string]float64 {
	src := t[uid]
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// reachable counts the nodes reachable from uid through next, excluding uid.
func reachable(uid string, next func(string) []string) int {
	visited := map[string]bool{uid: true}
	stack := []string{uid}
	count := 0
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range next(cur) {
			if visited[n] {
				continue
			}
			visited[n] = true
			count++
			stack = append(stack, n)
		}
	}
	return count
}

// depthMemo memoizes longest-chain lengths. Nodes on the current walk are
// marked so that a cyclic snapshot terminates instead of recursing forever.
type depthMemo struct {
	idx    *graph.Index
	memo   map[string]int
	onPath map[string]bool
}

func newDepthMemo(idx *graph.Index) *depthMemo {
	return &depthMemo{
		idx:    idx,
		memo:   make(map[string]int, idx.Len()),
		onPath: make(map[string]bool),
	}
}

// depth walks dependencies iteratively to stay safe on deep graphs.
func (d *depthMemo) depth(root string) int {
	type frame struct {
		uid  string
		next int
		best int
	}
	if v, ok := d.memo[root]; ok {
		return v
	}
	stack := []*frame{{uid: root}}
	d.onPath[root] = true
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		deps := d.idx.Deps(top.uid)
		if top.next < len(deps) {
			dep := deps[top.next]
			top.next++
			if v, ok := d.memo[dep]; ok {
				top.best = max(top.best, v)
				continue
			}
			if d.onPath[dep] {
				continue
			}
			d.onPath[dep] = true
			stack = append(stack, &frame{uid: dep})
			continue
		}
		v := top.best + 1
		d.memo[top.uid] = v
		delete(d.onPath, top.uid)
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.best = max(parent.best, v)
		}
	}
	return d.memo[root]
}
