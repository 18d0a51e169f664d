// Package graph defines the project/task/discussion property graph, its
// traversal queries, and the flat record form used to persist it.
package graph

import "fmt"

// NodeType tags what a node represents.
type NodeType string

const (
	NodeProject    NodeType = "project"
	NodeTask       NodeType = "task"
	NodeSubTask    NodeType = "sub_task"
	NodeUser       NodeType = "user"
	NodeDiscussion NodeType = "discussion"
)

// NodeTypes lists every known node type.
var NodeTypes = []NodeType{NodeProject, NodeTask, NodeSubTask, NodeUser, NodeDiscussion}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeProject, NodeTask, NodeSubTask, NodeUser, NodeDiscussion:
		return true
	}
	return false
}

// ParseNodeType converts s into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("graph: unknown node type %q", s)
	}
	return t, nil
}

// EdgeType is either directed or undirected.
type EdgeType string

const (
	EdgeDirected   EdgeType = "directed"
	EdgeUndirected EdgeType = "undirected"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	return t == EdgeDirected || t == EdgeUndirected
}

// ParseEdgeType converts s into an EdgeType.
func ParseEdgeType(s string) (EdgeType, error) {
	t := EdgeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("graph: unknown edge type %q", s)
	}
	return t, nil
}

// EdgeCategory classifies the relation an edge expresses.
type EdgeCategory string

const (
	CategoryAssign     EdgeCategory = "assign"
	CategoryDependency EdgeCategory = "dependency"
	CategoryRelated    EdgeCategory = "related"
)

// Valid reports whether c is a known edge category.
func (c EdgeCategory) Valid() bool {
	switch c {
	case CategoryAssign, CategoryDependency, CategoryRelated:
		return true
	}
	return false
}

// ParseEdgeCategory converts s into an EdgeCategory.
func ParseEdgeCategory(s string) (EdgeCategory, error) {
	c := EdgeCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("graph: unknown edge category %q", s)
	}
	return c, nil
}

// DefaultWeight is stored for edges added without an explicit weight.
const DefaultWeight = 1.0

// Node is a typed vertex with an opaque payload. It owns its outgoing edges.
// Nodes are created and held by a Graph; the accessors hand out copies so
// callers cannot change a node behind the graph's back.
type Node struct {
	id   string
	typ  NodeType
	data map[string]any

	edges    []Edge
	incoming []Edge
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// Data returns a shallow copy of the node payload.
func (n *Node) Data() map[string]any { return cloneData(n.data) }

// Edges returns a copy of the node's outgoing edges in insertion order.
func (n *Node) Edges() []Edge {
	out := make([]Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// Edge is a typed, categorised, weighted relation between two nodes.
type Edge struct {
	From     string
	To       string
	Type     EdgeType
	Category EdgeCategory
	Weight   float64
}
