package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/graphservice"
	"github.com/starford/trellis/internal/mcpserver"
	"github.com/starford/trellis/internal/seed"
)

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	repo, _, err := openRepository(app.config.Store)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := app.newService(repo, logger)
	if _, err := svc.Reload(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	flushOnExit(svc, logger)
	return nil
}

// RunSeed merges the seed document at path into the stored graph and saves
// it. Nodes that already exist are kept as they are.
func RunSeed(ctx context.Context, path string, opts ...Option) (seed.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return seed.Report{}, err
	}
	logger := app.newLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		return seed.Report{}, fmt.Errorf("read seed file: %w", err)
	}
	doc, err := seed.Parse(data)
	if err != nil {
		return seed.Report{}, fmt.Errorf("seed file %s: %w", path, err)
	}

	repo, _, err := openRepository(app.config.Store)
	if err != nil {
		return seed.Report{}, err
	}
	defer repo.Close()

	svc := app.newService(repo, logger)
	// Saving over a store we could not read would discard its contents.
	if _, err := svc.Reload(ctx); err != nil {
		return seed.Report{}, err
	}

	var rep seed.Report
	svc.Apply(func(g *graph.Graph) { rep = doc.Apply(g) })
	for _, msg := range rep.Skipped {
		logger.Warn("seed: skipped", slog.String("reason", msg))
	}

	if err := svc.Save(ctx); err != nil {
		return rep, err
	}
	logger.Info("Seed applied",
		slog.Int("nodes_added", rep.NodesAdded),
		slog.Int("nodes_existing", rep.NodesExisting),
		slog.Int("edges_added", rep.EdgesAdded),
		slog.Int("discussions_added", rep.DiscussionsAdded))
	return rep, nil
}

// Query selects one of the traversal queries. When User is set the query
// returns discussions linked to that user, otherwise nodes of Type.
type Query struct {
	Parent string
	Type   graph.NodeType
	User   string
}

// RunQuery loads the stored graph, runs q and writes the matching nodes to
// out as indented JSON.
func RunQuery(ctx context.Context, out io.Writer, q Query, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()

	repo, _, err := openRepository(app.config.Store)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := app.newService(repo, logger)
	if _, err := svc.Reload(ctx); err != nil {
		return err
	}

	var nodes []graphservice.NodeView
	if q.User != "" {
		nodes, err = svc.FindDiscussionsByUser(ctx, q.Parent, q.User)
	} else {
		nodes, err = svc.FindNodesByType(ctx, q.Parent, q.Type)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(nodes)
}
