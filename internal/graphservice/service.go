// Package graphservice owns the live graph and coordinates it with the
// record store.
package graphservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/trellis/internal/apperr"
	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/store"
)

// Event kinds passed to EventCallback.
const (
	EventNodeCreated       = "node.created"
	EventEdgeCreated       = "edge.created"
	EventDiscussionCreated = "discussion.created"
	EventGraphSaved        = "graph.saved"
	EventGraphReloaded     = "graph.reloaded"
)

// EventCallback is called after each successful change. id is the affected
// node id, or empty for whole-graph events.
type EventCallback func(kind, id string)

// NodeView is the transport representation of a node.
type NodeView struct {
	ID    string         `json:"nodeId"`
	Type  graph.NodeType `json:"type"`
	Data  map[string]any `json:"data,omitempty"`
	Edges []EdgeView     `json:"edges"`
}

// EdgeView is the transport representation of an edge.
type EdgeView = graph.EdgeRecord

// Status describes the last load and save.
type Status struct {
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Dirty     bool      `json:"dirty"`
	LoadedAt  time.Time `json:"loaded_at,omitzero"`
	SavedAt   time.Time `json:"saved_at,omitzero"`
	LoadError string    `json:"load_error,omitempty"`
}

// Service holds the current graph. The graph is not safe for concurrent use,
// so every access goes through mu.
type Service struct {
	repo   store.Repository
	logger *slog.Logger
	opts   []graph.Option
	notify EventCallback

	mu     sync.RWMutex
	g      *graph.Graph
	status Status
	// loaded is set once a Reload has succeeded. Until then the in-memory
	// graph does not reflect the store and must not be written over it.
	loaded bool
	// gen counts mutations so a reload can tell whether the graph changed
	// while the store was being read.
	gen uint64
}

// Option configures a Service.
type Option func(*Service)

// WithGraphOptions passes options to every graph the service builds.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(s *Service) { s.opts = append(s.opts, opts...) }
}

// WithEventCallback registers cb for change notifications.
func WithEventCallback(cb EventCallback) Option {
	return func(s *Service) { s.notify = cb }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service with an empty graph. Call Reload to populate it.
func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.g = graph.New(s.opts...)
	return s
}

// Reload replaces the current graph with a fresh one built from the store,
// discarding unsaved changes. On failure the current graph is kept and the
// error is recorded in Status. If the graph is mutated while the store is
// being read, the fresh graph is dropped and an error wrapping
// apperr.ErrConflict is returned.
func (s *Service) Reload(ctx context.Context) (graph.LoadReport, error) {
	rep, _, err := s.reload(ctx, true)
	return rep, err
}

// ReloadIfClean is Reload for background callers such as the file watcher.
// It leaves a graph with unsaved changes alone and reports whether the
// graph was replaced.
func (s *Service) ReloadIfClean(ctx context.Context) (graph.LoadReport, bool, error) {
	return s.reload(ctx, false)
}

func (s *Service) reload(ctx context.Context, force bool) (graph.LoadReport, bool, error) {
	s.mu.RLock()
	gen := s.gen
	keep := s.loaded && s.status.Dirty
	s.mu.RUnlock()
	if keep && !force {
		return graph.LoadReport{}, false, nil
	}

	g, rep, err := store.LoadGraph(ctx, s.repo, s.logger, s.opts...)

	s.mu.Lock()
	if err != nil {
		s.status.LoadError = err.Error()
		s.mu.Unlock()
		return graph.LoadReport{}, false, fmt.Errorf("%w: %w", apperr.ErrUnavailable, err)
	}
	if s.gen != gen {
		s.mu.Unlock()
		if !force {
			return graph.LoadReport{}, false, nil
		}
		return graph.LoadReport{}, false, fmt.Errorf("%w: graph changed during reload", apperr.ErrConflict)
	}
	s.g = g
	s.loaded = true
	s.status.LoadError = ""
	s.status.LoadedAt = time.Now().UTC()
	s.status.Dirty = false
	s.mu.Unlock()

	s.emit(EventGraphReloaded, "")
	return rep, true, nil
}

// Save writes the current graph to the store. It fails with
// apperr.ErrUnavailable until a Reload has succeeded, so a store that could
// not be read is never replaced by a partial graph.
func (s *Service) Save(ctx context.Context) error {
	// Hold the write lock so no mutation lands between flatten and write.
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return fmt.Errorf("%w: graph was never loaded from the store", apperr.ErrUnavailable)
	}
	err := store.SaveGraph(ctx, s.repo, s.g)
	if err == nil {
		s.status.Dirty = false
		s.status.SavedAt = time.Now().UTC()
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrUnavailable, err)
	}
	s.emit(EventGraphSaved, "")
	return nil
}

// AddNode inserts a node. Re-adding an existing id returns
// apperr.ErrAlreadyExists and leaves the stored node unchanged.
func (s *Service) AddNode(_ context.Context, id string, t graph.NodeType, data map[string]any) (*NodeView, error) {
	if id == "" || !t.Valid() {
		return nil, fmt.Errorf("%w: node id and a known type are required", apperr.ErrInvalidInput)
	}
	s.mu.Lock()
	inserted := s.g.AddNode(id, t, data)
	if inserted {
		s.touch()
	}
	n, _ := s.g.Node(id)
	view := toView(n)
	s.mu.Unlock()

	if !inserted {
		return view, fmt.Errorf("node %q: %w", id, apperr.ErrAlreadyExists)
	}
	s.emit(EventNodeCreated, id)
	return view, nil
}

// AddEdge links two existing nodes.
func (s *Service) AddEdge(_ context.Context, e graph.EdgeRecord) error {
	if !e.Type.Valid() || !e.Category.Valid() || e.Weight < 0 {
		return fmt.Errorf("%w: edge type, category or weight", apperr.ErrInvalidInput)
	}
	s.mu.Lock()
	err := s.g.AddEdge(e.FromNodeID, e.ToNodeID, e.Type, e.Category, e.Weight)
	if err == nil {
		s.touch()
	}
	s.mu.Unlock()

	if err != nil {
		return mapGraphErr(err)
	}
	s.emit(EventEdgeCreated, e.FromNodeID)
	return nil
}

// AddDiscussion attaches a discussion to parentID and returns the new node.
func (s *Service) AddDiscussion(_ context.Context, parentID string, d graph.Discussion) (*NodeView, error) {
	s.mu.Lock()
	id, err := s.g.AddDiscussion(parentID, d)
	if id != "" {
		s.touch()
	}
	var view *NodeView
	if err == nil {
		n, _ := s.g.Node(id)
		view = toView(n)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, mapGraphErr(err)
	}
	s.emit(EventDiscussionCreated, id)
	return view, nil
}

// GetNode returns a node with its outgoing edges.
func (s *Service) GetNode(_ context.Context, id string) (*NodeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.g.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, apperr.ErrNotFound)
	}
	return toView(n), nil
}

// Snapshot returns the current graph as flat records.
func (s *Service) Snapshot(_ context.Context) ([]graph.NodeRecord, []graph.EdgeRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.Flatten(s.g)
}

// FindNodesByType returns nodes of type t under parentID. A missing parent
// yields an empty list.
func (s *Service) FindNodesByType(_ context.Context, parentID string, t graph.NodeType) ([]NodeView, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: node type %q", apperr.ErrInvalidInput, t)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return toViews(s.g.FindNodesByTypeUnderParent(parentID, t)), nil
}

// FindDiscussionsByUser returns discussions under parentID linked to userID.
func (s *Service) FindDiscussionsByUser(_ context.Context, parentID, userID string) ([]NodeView, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", apperr.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return toViews(s.g.FindDiscussionsByUserUnderParent(parentID, userID)), nil
}

// Status reports graph size and persistence state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Nodes = s.g.Len()
	st.Edges = s.g.EdgeCount()
	return st
}

// Apply runs fn against the live graph under the write lock and marks the
// graph dirty. It is meant for bulk changes such as seeding.
func (s *Service) Apply(fn func(*graph.Graph)) {
	s.mu.Lock()
	fn(s.g)
	s.touch()
	s.mu.Unlock()
}

// touch records a mutation. Callers hold mu.
func (s *Service) touch() {
	s.gen++
	s.status.Dirty = true
}

func (s *Service) emit(kind, id string) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}

func mapGraphErr(err error) error {
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	case errors.Is(err, graph.ErrIDCollision):
		return fmt.Errorf("%w: %w", apperr.ErrConflict, err)
	}
	return err
}

func toView(n *graph.Node) *NodeView {
	edges := n.Edges()
	v := &NodeView{ID: n.ID(), Type: n.Type(), Data: n.Data(), Edges: make([]EdgeView, 0, len(edges))}
	for _, e := range edges {
		v.Edges = append(v.Edges, e.Record())
	}
	return v
}

func toViews(nodes []*graph.Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *toView(n))
	}
	return out
}
