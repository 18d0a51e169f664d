// Package filestore persists graph records as YAML files in a directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/trellis/internal/checksum"
	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/store"
)

// Record file names inside the store directory.
const (
	NodesFile = "nodes.yaml"
	EdgesFile = "edges.yaml"
)

// Verify *FS satisfies store.Repository at compile time.
var _ store.Repository = (*FS)(nil)

// FS implements store.Repository on two YAML files.
type FS struct {
	root string // absolute path to the record directory

	mu   sync.Mutex
	sums map[string]string // checksum of each file as last read or written
}

// New creates a file store rooted at dir, creating the directory if needed.
func New(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: mkdir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("filestore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("filestore: root is not a directory: %s", abs)
	}
	return &FS{root: abs, sums: make(map[string]string)}, nil
}

// Root returns the absolute record directory.
func (f *FS) Root() string { return f.root }

// LoadNodes reads nodes.yaml. A missing file is an empty set.
func (f *FS) LoadNodes(ctx context.Context) ([]graph.NodeRecord, error) {
	var out []graph.NodeRecord
	if err := f.readYAML(ctx, NodesFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadEdges reads edges.yaml. A missing file is an empty set.
func (f *FS) LoadEdges(ctx context.Context) ([]graph.EdgeRecord, error) {
	var out []graph.EdgeRecord
	if err := f.readYAML(ctx, EdgesFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveNodes replaces nodes.yaml.
func (f *FS) SaveNodes(ctx context.Context, nodes []graph.NodeRecord) error {
	if nodes == nil {
		nodes = []graph.NodeRecord{}
	}
	return f.writeYAML(ctx, NodesFile, nodes)
}

// SaveEdges replaces edges.yaml.
func (f *FS) SaveEdges(ctx context.Context, edges []graph.EdgeRecord) error {
	if edges == nil {
		edges = []graph.EdgeRecord{}
	}
	return f.writeYAML(ctx, EdgesFile, edges)
}

// Close is a no-op; the store holds no open handles.
func (f *FS) Close() error { return nil }

// Changed reports whether the file on disk differs from what this store
// last read or wrote.
func (f *FS) Changed(name string) bool {
	data, err := os.ReadFile(filepath.Join(f.root, name))
	if err != nil {
		return errors.Is(err, fs.ErrNotExist) && f.known(name) != ""
	}
	return !checksum.Equal(data, f.known(name))
}

func (f *FS) known(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sums[name]
}

func (f *FS) remember(name, sum string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sums[name] = sum
}

func (f *FS) readYAML(ctx context.Context, name string, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(f.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.remember(name, "")
			return nil
		}
		return fmt.Errorf("filestore: read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("filestore: parse %s: %w", name, err)
	}
	f.remember(name, checksum.Sum(data))
	return nil
}

// writeYAML atomically writes v: tmp file → fsync → rename. Unchanged
// content is not rewritten.
func (f *FS) writeYAML(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("filestore: encode %s: %w", name, err)
	}
	abs := filepath.Join(f.root, name)
	sum := checksum.Sum(content)
	if existing, err := os.ReadFile(abs); err == nil && checksum.Equal(existing, sum) {
		f.remember(name, sum)
		return nil
	}

	tmp, err := os.CreateTemp(f.root, ".trellis-tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("filestore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("filestore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close temp: %w", err)
	}
	// Record the checksum before the rename so the watcher sees it as ours.
	f.remember(name, sum)
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("filestore: rename: %w", err)
	}
	success = true
	return nil
}
