package graph

import (
	"errors"
)

// NodeRecord is the persisted form of a node.
type NodeRecord struct {
	NodeID string         `json:"nodeId" yaml:"nodeId"`
	Type   NodeType       `json:"type" yaml:"type"`
	Data   map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// EdgeRecord is the persisted form of an edge.
type EdgeRecord struct {
	FromNodeID string       `json:"fromNodeId" yaml:"fromNodeId"`
	ToNodeID   string       `json:"toNodeId" yaml:"toNodeId"`
	Type       EdgeType     `json:"type" yaml:"type"`
	Category   EdgeCategory `json:"category" yaml:"category"`
	Weight     float64      `json:"weight" yaml:"weight"`
}

// LoadReport summarises what Load did with the records it was given.
type LoadReport struct {
	NodesInserted  int
	NodesDuplicate int
	EdgesInserted  int
	// DroppedEdges lists edge records whose endpoints were not both present.
	DroppedEdges []EdgeRecord
}

// Load builds a fresh graph from node and edge records. All nodes are
// inserted before any edge, so edge order relative to nodes does not matter.
// Duplicate node ids keep the first record; edges with a missing endpoint
// are dropped and reported. Edge weights are kept exactly as stored, zero
// included, so Load followed by Flatten reproduces the records.
func Load(nodes []NodeRecord, edges []EdgeRecord, opts ...Option) (*Graph, LoadReport) {
	g := New(opts...)
	var rep LoadReport

	for _, r := range nodes {
		if g.AddNode(r.NodeID, r.Type, r.Data) {
			rep.NodesInserted++
		} else {
			rep.NodesDuplicate++
		}
	}

	for _, r := range edges {
		err := g.addEdge(r.FromNodeID, r.ToNodeID, r.Type, r.Category, r.Weight)
		switch {
		case err == nil:
			rep.EdgesInserted++
		case errors.Is(err, ErrNodeNotFound):
			rep.DroppedEdges = append(rep.DroppedEdges, r)
		}
	}

	return g, rep
}

// Flatten returns one record per node and one record per outgoing edge, in
// insertion order. Repeated edges yield repeated records.
func Flatten(g *Graph) ([]NodeRecord, []EdgeRecord) {
	nodes := make([]NodeRecord, 0, g.Len())
	edges := make([]EdgeRecord, 0, g.EdgeCount())

	for _, n := range g.Nodes() {
		nodes = append(nodes, NodeRecord{
			NodeID: n.id,
			Type:   n.typ,
			Data:   cloneData(n.data),
		})
		for _, e := range n.edges {
			edges = append(edges, e.Record())
		}
	}
	return nodes, edges
}

// Record converts e to its persisted form.
func (e Edge) Record() EdgeRecord {
	return EdgeRecord{
		FromNodeID: e.From,
		ToNodeID:   e.To,
		Type:       e.Type,
		Category:   e.Category,
		Weight:     e.Weight,
	}
}
