package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := New[string]()
	g.AddNode("a", "node A")
	g.AddNode("b", "node B")
	g.AddNode("c", "node C")
	assert.Equal(t, 3, g.Len())

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("b", "c"), "duplicate edges are ignored")

	assert.Equal(t, []string{"b"}, g.Children("a"))
	assert.Equal(t, []string{"b"}, g.Parents("c"))

	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "node A", n.Data)
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := New[int]()
	g.AddNode("a", 1)

	assert.Error(t, g.AddEdge("a", "missing"))
	assert.Error(t, g.AddEdge("missing", "a"))
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := New[int]()
	g.AddNode("a", 1)

	err := g.AddEdge("a", "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := New[int]()
	for _, id := range []string{"d", "c", "b", "a"} {
		g.AddNode(id, 0)
	}
	require.NoError(t, g.AddEdge("c", "a"))
	require.NoError(t, g.AddEdge("b", "a"))
	require.NoError(t, g.AddEdge("d", "b"))

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, n := range sorted {
		pos[n.ID] = i
	}
	assert.Less(t, pos["b"], pos["a"])
	assert.Less(t, pos["c"], pos["a"])
	assert.Less(t, pos["d"], pos["b"])

	again, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, sorted, again, "order must be deterministic")
}

func TestGraph_Cycle(t *testing.T) {
	g := New[int]()
	g.AddNode("x", 0)
	g.AddNode("y", 0)
	g.AddNode("z", 0)
	require.NoError(t, g.AddEdge("x", "y"))
	require.NoError(t, g.AddEdge("y", "z"))
	require.NoError(t, g.AddEdge("z", "x"))

	_, err := g.TopologicalSort()
	require.Error(t, err)

	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ce.Path[0], ce.Path[len(ce.Path)-1])
	assert.Len(t, ce.Path, 4)
}
