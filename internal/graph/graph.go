package graph

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNodeNotFound is returned when an operation references an id that
	// is not in the graph.
	ErrNodeNotFound = errors.New("graph: node not found")
	// ErrIDCollision is returned when the id generator keeps producing ids
	// that are already taken.
	ErrIDCollision = errors.New("graph: generated id collides with existing node")
)

// maxIDAttempts bounds how many fresh ids AddDiscussionToNode asks for.
const maxIDAttempts = 8

// Graph is an in-memory adjacency structure keyed by node id. Outgoing edges
// live on the source node; every edge is also recorded on its target's
// incoming list.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges int

	ids IDGenerator
	now func() time.Time
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator sets the generator used for discussion ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) {
		if gen != nil {
			g.ids = gen
		}
	}
}

// WithClock sets the time source used to stamp discussions.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes: make(map[string]*Node),
		ids:   UUIDGenerator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode inserts a node unless the id is already present. It reports
// whether the node was inserted; an existing node keeps its original type
// and data. The graph stores its own copy of data.
func (g *Graph) AddNode(id string, t NodeType, data map[string]any) bool {
	if _, ok := g.nodes[id]; ok {
		return false
	}
	g.nodes[id] = &Node{id: id, typ: t, data: cloneData(data)}
	g.order = append(g.order, id)
	return true
}

// AddEdge appends an edge to from's outgoing list. Both endpoints must
// exist; otherwise the graph is left unchanged and an error wrapping
// ErrNodeNotFound is returned. A zero weight is stored as DefaultWeight.
func (g *Graph) AddEdge(from, to string, t EdgeType, c EdgeCategory, weight float64) error {
	if weight == 0 {
		weight = DefaultWeight
	}
	return g.addEdge(from, to, t, c, weight)
}

// addEdge links from and to with weight stored as given.
func (g *Graph) addEdge(from, to string, t EdgeType, c EdgeCategory, weight float64) error {
	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("%w: edge source %q", ErrNodeNotFound, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("%w: edge target %q", ErrNodeNotFound, to)
	}
	e := Edge{From: from, To: to, Type: t, Category: c, Weight: weight}
	src.edges = append(src.edges, e)
	dst.incoming = append(dst.incoming, e)
	g.edges++
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether id is in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Incoming returns a copy of the edges that point at id, in insertion order.
func (g *Graph) Incoming(id string) []Edge {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]Edge, len(n.incoming))
	copy(out, n.incoming)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edges }
