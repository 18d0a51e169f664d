// Package sqlitestore persists graph records in SQLite.
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id TEXT NOT NULL,
	type    TEXT NOT NULL,
	data    TEXT NOT NULL DEFAULT 'null'
);

CREATE TABLE IF NOT EXISTS edges (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	from_node_id TEXT NOT NULL,
	to_node_id   TEXT NOT NULL,
	type         TEXT NOT NULL,
	category     TEXT NOT NULL,
	weight       REAL NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_nodes_node_id ON nodes(node_id);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
`

// DB wraps a sql.DB holding the node and edge record sets.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
