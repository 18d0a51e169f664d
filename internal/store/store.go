// Package store defines the repository the graph is persisted through and the
// load/save protocol that drives it.
package store

import (
	"context"

	"github.com/starford/trellis/internal/graph"
)

// Repository persists the two record sets a graph flattens into. The sets
// are independent: a failure between SaveNodes and SaveEdges can leave
// nodes without their edges.
//
// Save* replaces the whole record set with the given records.
type Repository interface {
	LoadNodes(ctx context.Context) ([]graph.NodeRecord, error)
	LoadEdges(ctx context.Context) ([]graph.EdgeRecord, error)
	SaveNodes(ctx context.Context, nodes []graph.NodeRecord) error
	SaveEdges(ctx context.Context, edges []graph.EdgeRecord) error
	Close() error
}

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendFiles  = "files"
)
