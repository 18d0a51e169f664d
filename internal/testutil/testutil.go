// Package testutil provides shared test helpers for setting up record stores
// and graph services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/graphservice"
	"github.com/starford/trellis/internal/store"
	"github.com/starford/trellis/internal/store/filestore"
	"github.com/starford/trellis/internal/store/sqlitestore"
)

// TestDB creates a temporary SQLite record store that is automatically cleaned up.
func TestDB(t *testing.T) *sqlitestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "trellis-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sqlitestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFileStore creates a YAML record store in a temporary directory.
func TestFileStore(t *testing.T) *filestore.FS {
	t.Helper()
	fs, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

// TestService wraps repo in a service with a silent logger and sequential
// discussion ids (discussion_1, discussion_2, ...), and loads it from repo.
func TestService(t *testing.T, repo store.Repository, opts ...graphservice.Option) *graphservice.Service {
	t.Helper()
	base := []graphservice.Option{
		graphservice.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		graphservice.WithGraphOptions(graph.WithIDGenerator(&graph.SequenceGenerator{})),
	}
	svc := graphservice.New(repo, append(base, opts...)...)
	if _, err := svc.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc
}
