package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces node ids for nodes the graph creates itself
// (discussions).
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator yields ids of the form "<prefix>_<uuid v4>".
type UUIDGenerator struct {
	Prefix string
}

// NewID implements IDGenerator.
func (g UUIDGenerator) NewID() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = string(NodeDiscussion)
	}
	return prefix + "_" + uuid.NewString()
}

// SequenceGenerator yields "<prefix>_1", "<prefix>_2", ... and is safe for
// concurrent use.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

// NewID implements IDGenerator.
func (g *SequenceGenerator) NewID() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = string(NodeDiscussion)
	}
	return fmt.Sprintf("%s_%d", prefix, g.n.Add(1))
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

// NewID implements IDGenerator.
func (f IDFunc) NewID() string { return f() }
