package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/trellis/internal/graph"
)

// LoadGraph reads both record sets and builds a fresh graph from them:
//   - nodes are loaded and inserted first
//   - edges are inserted afterwards; edges with a missing endpoint are
//     dropped and logged
//
// Read failures are returned, never converted into an empty graph.
func LoadGraph(ctx context.Context, repo Repository, logger *slog.Logger, opts ...graph.Option) (*graph.Graph, graph.LoadReport, error) {
	nodes, err := repo.LoadNodes(ctx)
	if err != nil {
		return nil, graph.LoadReport{}, fmt.Errorf("store: load nodes: %w", err)
	}
	edges, err := repo.LoadEdges(ctx)
	if err != nil {
		return nil, graph.LoadReport{}, fmt.Errorf("store: load edges: %w", err)
	}

	g, rep := graph.Load(nodes, edges, opts...)

	for _, e := range rep.DroppedEdges {
		logger.Warn("load: dropped edge with missing endpoint",
			slog.String("from", e.FromNodeID),
			slog.String("to", e.ToNodeID),
			slog.String("category", string(e.Category)))
	}
	if rep.NodesDuplicate > 0 {
		logger.Warn("load: duplicate node records ignored", slog.Int("count", rep.NodesDuplicate))
	}
	logger.Debug("load: graph built",
		slog.Int("nodes", rep.NodesInserted),
		slog.Int("edges", rep.EdgesInserted))

	return g, rep, nil
}

// SaveGraph flattens g and writes nodes, then edges. If the edge write fails
// the node set has already been replaced.
func SaveGraph(ctx context.Context, repo Repository, g *graph.Graph) error {
	nodes, edges := graph.Flatten(g)
	if err := repo.SaveNodes(ctx, nodes); err != nil {
		return fmt.Errorf("store: save nodes: %w", err)
	}
	if err := repo.SaveEdges(ctx, edges); err != nil {
		return fmt.Errorf("store: save edges: %w", err)
	}
	return nil
}
