// Package compdag maintains a directed acyclic graph over component ids
// together with a per-node reachability cache.
//
// Storage is flat: successor, predecessor and reachability sets are bitsets
// indexed by dense integer ids. Adding an edge or contracting two nodes
// updates the cache incrementally by walking the ancestors of the touched
// node. Removing an edge only marks the cache stale; the next reachability
// query rebuilds it from scratch.
//
// A Graph is not safe for concurrent use.
package compdag

import "github.com/bits-and-blooms/bitset"

// Graph is a DAG over integer ids with cached transitive closure.
type Graph struct {
	succ  []*bitset.BitSet
	pred  []*bitset.BitSet
	reach []*bitset.BitSet
	stale bool
}

// New creates a Graph covering ids 0..n-1.
func New(n int) *Graph {
	g := &Graph{}
	g.EnsureCapacity(n)
	return g
}

// EnsureCapacity grows storage so ids 0..n-1 are valid.
func (g *Graph) EnsureCapacity(n int) {
	for i := len(g.succ); i < n; i++ {
		g.succ = append(g.succ, bitset.New(0))
		g.pred = append(g.pred, bitset.New(0))
		g.reach = append(g.reach, bitset.New(0))
	}
}

// Len returns the number of ids covered.
func (g *Graph) Len() int { return len(g.succ) }

func (g *Graph) valid(id int) bool { return id >= 0 && id < len(g.succ) }

// Stale reports whether the reachability cache awaits a rebuild.
func (g *Graph) Stale() bool { return g.stale }

// HasEdge reports whether the direct edge source->target exists.
func (g *Graph) HasEdge(source, target int) bool {
	return g.valid(source) && target >= 0 && g.succ[source].Test(uint(target))
}

// CanReach reports whether a directed path of at least one edge leads from
// source to target. Ids outside the graph reach nothing.
func (g *Graph) CanReach(source, target int) bool {
	if !g.valid(source) || target < 0 {
		return false
	}
	if g.stale {
		g.RebuildReachability()
	}
	return g.reach[source].Test(uint(target))
}

// TryAddEdge adds source->target unless it is a self loop or would close a
// cycle. It reports whether the edge is present afterwards. A rejected edge
// leaves the graph untouched.
func (g *Graph) TryAddEdge(source, target int) bool {
	if source == target || source < 0 || target < 0 {
		return false
	}
	if g.CanReach(target, source) {
		return false
	}
	g.EnsureCapacity(max(source, target) + 1)

	g.succ[source].Set(uint(target))
	g.pred[target].Set(uint(source))

	t := uint(target)
	tReach := g.reach[target]
	g.walkAncestors(source, func(u int) {
		g.reach[u].Set(t).InPlaceUnion(tReach)
	})
	return true
}

// ContractMerge folds removed into kept: every edge touching removed is
// redirected to kept (self loops dropped) and removed is left isolated.
// The caller guarantees that no path joins kept and removed, otherwise the
// contraction would create a cycle.
//
// The cache is a strict closure: kept is not marked reachable from itself,
// and CanReach(kept, kept) stays false.
func (g *Graph) ContractMerge(kept, removed int) {
	if kept == removed || kept < 0 || removed < 0 {
		return
	}
	g.EnsureCapacity(max(kept, removed) + 1)
	k, r := uint(kept), uint(removed)

	for s, ok := g.succ[removed].NextSet(0); ok; s, ok = g.succ[removed].NextSet(s + 1) {
		g.pred[s].Clear(r)
		if s != k {
			g.succ[kept].Set(s)
			g.pred[s].Set(k)
		}
	}
	for p, ok := g.pred[removed].NextSet(0); ok; p, ok = g.pred[removed].NextSet(p + 1) {
		g.succ[p].Clear(r)
		if p != k {
			g.succ[p].Set(k)
			g.pred[kept].Set(p)
		}
	}
	g.succ[removed].ClearAll()
	g.pred[removed].ClearAll()

	g.reach[kept].InPlaceUnion(g.reach[removed])
	g.reach[kept].Clear(k).Clear(r)
	g.reach[removed].ClearAll()
	if g.stale {
		return
	}

	kReach := g.reach[kept]
	g.walkAncestors(kept, func(u int) {
		if u == kept {
			return
		}
		g.reach[u].Clear(r).Set(k).InPlaceUnion(kReach)
	})
}

// RemoveEdge deletes source->target if present. Reachability is not shrunk
// in place; the cache is marked stale instead.
func (g *Graph) RemoveEdge(source, target int) {
	if !g.HasEdge(source, target) {
		return
	}
	g.succ[source].Clear(uint(target))
	g.pred[target].Clear(uint(source))
	g.stale = true
}

// RebuildReachability recomputes every reachability set from adjacency and
// clears the stale flag. Nodes are finished in post-order, so each set is
// the union of its successors and their already computed sets.
func (g *Graph) RebuildReachability() {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	type frame struct {
		node     int
		expanded bool
	}

	n := len(g.succ)
	state := make([]uint8, n)
	for i := range g.reach {
		g.reach[i].ClearAll()
	}

	stack := make([]frame, 0, n)
	for root := 0; root < n; root++ {
		if state[root] != unvisited {
			continue
		}
		stack = append(stack, frame{node: root})
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			u := f.node

			if f.expanded {
				for v, ok := g.succ[u].NextSet(0); ok; v, ok = g.succ[u].NextSet(v + 1) {
					g.reach[u].Set(v).InPlaceUnion(g.reach[v])
				}
				state[u] = visited
				continue
			}
			if state[u] != unvisited {
				continue
			}
			state[u] = visiting
			stack = append(stack, frame{node: u, expanded: true})
			for v, ok := g.succ[u].NextSet(0); ok; v, ok = g.succ[u].NextSet(v + 1) {
				if state[v] == unvisited {
					stack = append(stack, frame{node: int(v)})
				}
			}
		}
	}
	g.stale = false
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	var n uint
	for _, s := range g.succ {
		n += s.Count()
	}
	return int(n)
}

// Reset drops every node and edge.
func (g *Graph) Reset() {
	g.succ, g.pred, g.reach = nil, nil, nil
	g.stale = false
}

// Clone returns an independent deep copy.
func (g *Graph) Clone() *Graph {
	return &Graph{
		succ:  cloneSets(g.succ),
		pred:  cloneSets(g.pred),
		reach: cloneSets(g.reach),
		stale: g.stale,
	}
}

// walkAncestors visits start and every node that can reach it, once each.
func (g *Graph) walkAncestors(start int, visit func(u int)) {
	seen := bitset.New(uint(len(g.succ)))
	seen.Set(uint(start))
	stack := []int{start}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(u)
		for p, ok := g.pred[u].NextSet(0); ok; p, ok = g.pred[u].NextSet(p + 1) {
			if !seen.Test(p) {
				seen.Set(p)
				stack = append(stack, int(p))
			}
		}
	}
}

func cloneSets(in []*bitset.BitSet) []*bitset.BitSet {
	out := make([]*bitset.BitSet, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
