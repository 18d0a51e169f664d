package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenLoad_RoundTrip(t *testing.T) {
	g := New()
	g.AddNode("p1", NodeProject, map[string]any{"name": "Project A"})
	g.AddNode("t1", NodeTask, nil)
	require.NoError(t, g.AddEdge("p1", "t1", EdgeDirected, CategoryAssign, 1))

	nodes, edges := Flatten(g)
	require.Len(t, nodes, 2)
	assert.Equal(t, []EdgeRecord{{
		FromNodeID: "p1", ToNodeID: "t1", Type: EdgeDirected, Category: CategoryAssign, Weight: 1,
	}}, edges)

	back, rep := Load(nodes, edges)
	assert.Equal(t, 2, rep.NodesInserted)
	assert.Equal(t, 1, rep.EdgesInserted)
	assert.Empty(t, rep.DroppedEdges)

	nodes2, edges2 := Flatten(back)
	assert.Equal(t, nodes, nodes2)
	assert.Equal(t, edges, edges2)
}

func TestLoad_EdgesBeforeNodesOrderIndependent(t *testing.T) {
	edges := []EdgeRecord{{FromNodeID: "b", ToNodeID: "a", Type: EdgeDirected, Category: CategoryDependency, Weight: 2}}
	nodes := []NodeRecord{{NodeID: "b", Type: NodeTask}, {NodeID: "a", Type: NodeTask}}

	g, rep := Load(nodes, edges)
	assert.Equal(t, 1, rep.EdgesInserted)
	assert.Equal(t, []string{"b", "a"}, ids(g.FindNodesByTypeUnderParent("b", NodeTask)))
}

func TestLoad_DropsDanglingEdgesAndDuplicates(t *testing.T) {
	nodes := []NodeRecord{
		{NodeID: "a", Type: NodeProject, Data: map[string]any{"v": 1}},
		{NodeID: "a", Type: NodeProject, Data: map[string]any{"v": 2}},
	}
	dangling := EdgeRecord{FromNodeID: "a", ToNodeID: "ghost", Type: EdgeDirected, Category: CategoryAssign, Weight: 1}

	g, rep := Load(nodes, []EdgeRecord{dangling})
	assert.Equal(t, 1, rep.NodesInserted)
	assert.Equal(t, 1, rep.NodesDuplicate)
	assert.Equal(t, []EdgeRecord{dangling}, rep.DroppedEdges)
	assert.Zero(t, g.EdgeCount())

	n, _ := g.Node("a")
	assert.Equal(t, 1, n.Data()["v"])
}

func TestFlatten_NoDeduplication(t *testing.T) {
	g := New()
	g.AddNode("a", NodeTask, nil)
	g.AddNode("b", NodeTask, nil)
	require.NoError(t, g.AddEdge("a", "b", EdgeDirected, CategoryDependency, 1))
	require.NoError(t, g.AddEdge("a", "b", EdgeDirected, CategoryDependency, 1))

	_, edges := Flatten(g)
	require.Len(t, edges, 2)
	assert.Equal(t, edges[0], edges[1])
}

func TestFlatten_DoesNotAliasData(t *testing.T) {
	g := New()
	g.AddNode("a", NodeTask, map[string]any{"k": "v"})

	nodes, _ := Flatten(g)
	nodes[0].Data["k"] = "changed"

	n, _ := g.Node("a")
	assert.Equal(t, "v", n.Data()["k"])
}

func TestLoad_KeepsStoredZeroWeight(t *testing.T) {
	nodes := []NodeRecord{{NodeID: "a", Type: NodeTask}, {NodeID: "b", Type: NodeTask}}
	edges := []EdgeRecord{{FromNodeID: "a", ToNodeID: "b", Type: EdgeDirected, Category: CategoryRelated, Weight: 0}}

	g, rep := Load(nodes, edges)
	require.Equal(t, 1, rep.EdgesInserted)

	_, back := Flatten(g)
	assert.Equal(t, edges, back)

	// The mutation path still applies the default.
	require.NoError(t, g.AddEdge("b", "a", EdgeDirected, CategoryRelated, 0))
	n, _ := g.Node("b")
	assert.Equal(t, DefaultWeight, n.Edges()[0].Weight)
}
