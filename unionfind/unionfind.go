// Package unionfind implements a growable disjoint-set forest over dense
// integer ids, with union by rank and full path compression.
//
// Each set models a class of mutually contemporaneous stratigraphic units.
// Merges are irreversible; only Reset clears them.
package unionfind

// UnionResult reports the outcome of Union. When Merged is true, Absorbed is
// the root that was attached under Root and no longer names a component.
type UnionResult struct {
	Merged   bool
	Root     int
	Absorbed int
}

// DisjointSet is not safe for concurrent use.
type DisjointSet struct {
	parent []int
	rank   []int
	size   []int
	count  int
}

// New creates a DisjointSet holding n singleton sets.
func New(n int) *DisjointSet {
	ds := &DisjointSet{}
	ds.EnsureSize(n)
	return ds
}

// EnsureSize grows the forest so ids 0..n-1 are valid. New ids start as
// singletons; existing sets are preserved.
func (ds *DisjointSet) EnsureSize(n int) {
	for i := len(ds.parent); i < n; i++ {
		ds.parent = append(ds.parent, i)
		ds.rank = append(ds.rank, 0)
		ds.size = append(ds.size, 1)
		ds.count++
	}
}

// Len returns the number of ids covered.
func (ds *DisjointSet) Len() int { return len(ds.parent) }

// Find returns the root of x's set, compressing the whole path.
func (ds *DisjointSet) Find(x int) int {
	root := x
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for ds.parent[x] != root {
		next := ds.parent[x]
		ds.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b. The lower-rank root is attached under
// the higher-rank one; on a tie b's root is absorbed into a's.
func (ds *DisjointSet) Union(a, b int) UnionResult {
	ra, rb := ds.Find(a), ds.Find(b)
	if ra == rb {
		return UnionResult{Root: ra, Absorbed: -1}
	}
	if ds.rank[ra] < ds.rank[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	if ds.rank[ra] == ds.rank[rb] {
		ds.rank[ra]++
	}
	ds.size[ra] += ds.size[rb]
	ds.count--
	return UnionResult{Merged: true, Root: ra, Absorbed: rb}
}

// Connected reports whether a and b share a set.
func (ds *DisjointSet) Connected(a, b int) bool { return ds.Find(a) == ds.Find(b) }

// Size returns the number of ids in x's set.
func (ds *DisjointSet) Size(x int) int { return ds.size[ds.Find(x)] }

// ComponentCount returns the number of live sets.
func (ds *DisjointSet) ComponentCount() int { return ds.count }

// Reset drops every id.
func (ds *DisjointSet) Reset() {
	ds.parent, ds.rank, ds.size = nil, nil, nil
	ds.count = 0
}

// Clone returns an independent copy.
func (ds *DisjointSet) Clone() *DisjointSet {
	return &DisjointSet{
		parent: append([]int(nil), ds.parent...),
		rank:   append([]int(nil), ds.rank...),
		size:   append([]int(nil), ds.size...),
		count:  ds.count,
	}
}
