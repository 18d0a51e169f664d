package sqlitestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/store"
)

// Verify *DB satisfies store.Repository at compile time.
var _ store.Repository = (*DB)(nil)

// LoadNodes returns every node record in insertion order.
func (db *DB) LoadNodes(ctx context.Context) ([]graph.NodeRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT node_id, type, data FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load nodes: %w", err)
	}
	defer rows.Close()

	var out []graph.NodeRecord
	for rows.Next() {
		var (
			r    graph.NodeRecord
			typ  string
			data string
		)
		if err := rows.Scan(&r.NodeID, &typ, &data); err != nil {
			return nil, err
		}
		r.Type = graph.NodeType(typ)
		if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode data of %q: %w", r.NodeID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadEdges returns every edge record in insertion order.
func (db *DB) LoadEdges(ctx context.Context) ([]graph.EdgeRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT from_node_id, to_node_id, type, category, weight
		FROM edges
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load edges: %w", err)
	}
	defer rows.Close()

	var out []graph.EdgeRecord
	for rows.Next() {
		var (
			r             graph.EdgeRecord
			typ, category string
		)
		if err := rows.Scan(&r.FromNodeID, &r.ToNodeID, &typ, &category, &r.Weight); err != nil {
			return nil, err
		}
		r.Type = graph.EdgeType(typ)
		r.Category = graph.EdgeCategory(category)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveNodes replaces the node set within a transaction.
func (db *DB) SaveNodes(ctx context.Context, nodes []graph.NodeRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("sqlitestore: clear nodes: %w", err)
	}
	if len(nodes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (node_id, type, data) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlitestore: prepare node insert: %w", err)
		}
		defer stmt.Close()
		for _, n := range nodes {
			data, err := json.Marshal(n.Data)
			if err != nil {
				return fmt.Errorf("sqlitestore: encode data of %q: %w", n.NodeID, err)
			}
			if _, err := stmt.ExecContext(ctx, n.NodeID, string(n.Type), string(data)); err != nil {
				return fmt.Errorf("sqlitestore: insert node: %w", err)
			}
		}
	}

	return tx.Commit()
}

// SaveEdges replaces the edge set within a transaction.
func (db *DB) SaveEdges(ctx context.Context, edges []graph.EdgeRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("sqlitestore: clear edges: %w", err)
	}
	if len(edges) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO edges (from_node_id, to_node_id, type, category, weight)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("sqlitestore: prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range edges {
			if _, err := stmt.ExecContext(ctx, e.FromNodeID, e.ToNodeID, string(e.Type), string(e.Category), e.Weight); err != nil {
				return fmt.Errorf("sqlitestore: insert edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Counts returns the number of stored node and edge records.
func (db *DB) Counts(ctx context.Context) (nodes, edges int, err error) {
	if err = db.conn.QueryRowContext(ctx, `SELECT count(*) FROM nodes`).Scan(&nodes); err != nil {
		return 0, 0, fmt.Errorf("sqlitestore: count nodes: %w", err)
	}
	if err = db.conn.QueryRowContext(ctx, `SELECT count(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("sqlitestore: count edges: %w", err)
	}
	return nodes, edges, nil
}
