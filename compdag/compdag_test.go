package compdag_test

import (
	"math/rand"
	"testing"

	"github.com/meikuraledutech/stratigraphie/compdag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closure computes reachability by BFS over HasEdge, independent of the cache.
func closure(g *compdag.Graph, source int) map[int]bool {
	out := map[int]bool{}
	queue := []int{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for v := 0; v < g.Len(); v++ {
			if g.HasEdge(u, v) && !out[v] {
				out[v] = true
				queue = append(queue, v)
			}
		}
	}
	return out
}

// requireExactCache checks CanReach against closure for every pair.
func requireExactCache(t *testing.T, g *compdag.Graph) {
	t.Helper()
	for s := 0; s < g.Len(); s++ {
		want := closure(g, s)
		for d := 0; d < g.Len(); d++ {
			require.Equalf(t, want[d], g.CanReach(s, d), "CanReach(%d, %d)", s, d)
		}
	}
}

func TestTryAddEdge_Chain(t *testing.T) {
	g := compdag.New(3)

	require.True(t, g.TryAddEdge(0, 1))
	require.True(t, g.TryAddEdge(1, 2))

	assert.Equal(t, 2, g.EdgeCount())
	assert.True(t, g.CanReach(0, 2))
	assert.False(t, g.CanReach(2, 0))
	assert.False(t, g.CanReach(0, 0))
	requireExactCache(t, g)
}

func TestTryAddEdge_Rejections(t *testing.T) {
	g := compdag.New(3)
	require.True(t, g.TryAddEdge(0, 1))
	require.True(t, g.TryAddEdge(1, 2))

	assert.False(t, g.TryAddEdge(1, 1), "self loop")
	assert.False(t, g.TryAddEdge(2, 0), "closes a cycle")
	assert.False(t, g.TryAddEdge(1, 0), "closes a 2-cycle")
	assert.Equal(t, 2, g.EdgeCount(), "rejections do not mutate")
	requireExactCache(t, g)
}

func TestTryAddEdge_GrowsCapacity(t *testing.T) {
	g := compdag.New(0)
	require.True(t, g.TryAddEdge(4, 7))
	assert.Equal(t, 8, g.Len())
	assert.True(t, g.CanReach(4, 7))
	assert.False(t, g.CanReach(9, 4), "unknown ids reach nothing")
	assert.False(t, g.CanReach(-1, 4))
}

func TestTryAddEdge_PropagatesToAncestors(t *testing.T) {
	// 0 -> 1, 2 -> 1, then 1 -> 3 must reach both 0 and 2.
	g := compdag.New(5)
	require.True(t, g.TryAddEdge(0, 1))
	require.True(t, g.TryAddEdge(2, 1))
	require.True(t, g.TryAddEdge(3, 4))
	require.True(t, g.TryAddEdge(1, 3))

	assert.True(t, g.CanReach(0, 4))
	assert.True(t, g.CanReach(2, 4))
	requireExactCache(t, g)
}

func TestContractMerge_RedirectsEdges(t *testing.T) {
	// 0 -> 1 -> 2 and 3 -> 4; merge 1 and 4 (no path between them).
	g := compdag.New(5)
	require.True(t, g.TryAddEdge(0, 1))
	require.True(t, g.TryAddEdge(1, 2))
	require.True(t, g.TryAddEdge(3, 4))

	g.ContractMerge(1, 4)

	assert.True(t, g.HasEdge(3, 1))
	assert.False(t, g.HasEdge(3, 4))
	assert.True(t, g.CanReach(3, 2), "predecessor of removed now reaches kept's successors")
	assert.False(t, g.CanReach(4, 2), "removed is isolated")
	assert.False(t, g.CanReach(0, 4))
	assert.Equal(t, 3, g.EdgeCount())
	requireExactCache(t, g)
}

func TestContractMerge_DropsSelfLoopsAndDuplicates(t *testing.T) {
	// 0 -> 1, 0 -> 2, 1 -> 3, 2 -> 3; merge 1 and 2.
	g := compdag.New(4)
	require.True(t, g.TryAddEdge(0, 1))
	require.True(t, g.TryAddEdge(0, 2))
	require.True(t, g.TryAddEdge(1, 3))
	require.True(t, g.TryAddEdge(2, 3))

	g.ContractMerge(1, 2)

	assert.Equal(t, 2, g.EdgeCount(), "parallel edges collapse")
	assert.True(t, g.HasEdge(0, 1))
	assert.True(t, g.HasEdge(1, 3))
	assert.False(t, g.CanReach(1, 1), "kept is not reachable from itself")
	assert.False(t, g.CanReach(0, 0))
	requireExactCache(t, g)
}

func TestContractMerge_PreservesReachability(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 30; round++ {
		const n = 12
		g := compdag.New(n)
		for i := 0; i < 20; i++ {
			g.TryAddEdge(rng.Intn(n), rng.Intn(n))
		}

		// pick two nodes with no path between them
		kept, removed := -1, -1
		for tries := 0; tries < 50; tries++ {
			a, b := rng.Intn(n), rng.Intn(n)
			if a != b && !g.CanReach(a, b) && !g.CanReach(b, a) {
				kept, removed = a, b
				break
			}
		}
		if kept < 0 {
			continue
		}

		toRemoved := map[int]bool{}
		fromRemoved := closure(g, removed)
		for x := 0; x < n; x++ {
			toRemoved[x] = g.CanReach(x, removed)
		}

		g.ContractMerge(kept, removed)

		for x := 0; x < n; x++ {
			if x == kept || x == removed {
				continue
			}
			if toRemoved[x] {
				assert.True(t, g.CanReach(x, kept), "round %d: %d reached removed", round, x)
			}
			if fromRemoved[x] {
				assert.True(t, g.CanReach(kept, x), "round %d: removed reached %d", round, x)
			}
		}
		requireExactCache(t, g)
	}
}

func TestRemoveEdge_StaleRebuild(t *testing.T) {
	g := compdag.New(4)
	require.True(t, g.TryAddEdge(0, 1))
	require.True(t, g.TryAddEdge(1, 2))
	require.True(t, g.TryAddEdge(0, 3))
	require.True(t, g.TryAddEdge(3, 2))

	g.RemoveEdge(1, 2)
	assert.True(t, g.Stale())
	assert.True(t, g.CanReach(0, 2), "still reachable through 3")
	assert.False(t, g.Stale())
	assert.False(t, g.CanReach(1, 2))

	g.RemoveEdge(3, 2)
	assert.False(t, g.CanReach(0, 2))
	assert.Equal(t, 2, g.EdgeCount())

	g.RemoveEdge(2, 0) // absent
	assert.False(t, g.Stale())
	requireExactCache(t, g)
}

func TestRemoveEdge_AllowsPreviouslyCyclicEdge(t *testing.T) {
	g := compdag.New(2)
	require.True(t, g.TryAddEdge(0, 1))
	require.False(t, g.TryAddEdge(1, 0))

	g.RemoveEdge(0, 1)
	assert.True(t, g.TryAddEdge(1, 0))
	requireExactCache(t, g)
}

func TestRandomized_Acyclicity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const n = 25
	g := compdag.New(n)
	for i := 0; i < 200; i++ {
		a, b := rng.Intn(n), rng.Intn(n)
		if rng.Intn(6) == 0 {
			g.RemoveEdge(a, b)
			continue
		}
		g.TryAddEdge(a, b)
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			assert.False(t, g.CanReach(a, b) && g.CanReach(b, a), "%d <-> %d", a, b)
		}
	}
	requireExactCache(t, g)
}

func TestCloneAndReset(t *testing.T) {
	g := compdag.New(3)
	require.True(t, g.TryAddEdge(0, 1))
	c := g.Clone()

	require.True(t, g.TryAddEdge(1, 2))
	assert.False(t, c.CanReach(0, 2))
	assert.Equal(t, 1, c.EdgeCount())

	g.Reset()
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
}
