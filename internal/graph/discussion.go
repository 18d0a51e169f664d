package graph

import (
	"fmt"
	"maps"
)

// Discussion payload keys.
const (
	DataAuthor    = "author"
	DataContent   = "content"
	DataTimestamp = "timestamp"
)

// Discussion describes a comment thread entry attached to a node.
type Discussion struct {
	Author  string
	Content string
	// UserID optionally names the user node that authored the discussion.
	UserID string
}

// AddDiscussionToNode creates a discussion node carrying data and links it
// from parentID with a related/undirected edge. It returns the new
// discussion id.
func (g *Graph) AddDiscussionToNode(parentID string, data map[string]any) (string, error) {
	if !g.Has(parentID) {
		return "", fmt.Errorf("%w: discussion parent %q", ErrNodeNotFound, parentID)
	}

	id, err := g.freshID()
	if err != nil {
		return "", err
	}
	g.AddNode(id, NodeDiscussion, data)
	if err := g.AddEdge(parentID, id, EdgeUndirected, CategoryRelated, DefaultWeight); err != nil {
		return "", err
	}
	return id, nil
}

// AddDiscussion stamps d with the graph clock, attaches it to parentID and,
// when d.UserID names an existing node, links the discussion to that user.
// An unknown UserID does not fail the call; the discussion is kept unlinked.
// If linking fails, the discussion stays attached to parentID and its id is
// returned together with the error.
func (g *Graph) AddDiscussion(parentID string, d Discussion) (string, error) {
	data := map[string]any{
		DataAuthor:    d.Author,
		DataContent:   d.Content,
		DataTimestamp: g.now().UTC(),
	}
	id, err := g.AddDiscussionToNode(parentID, data)
	if err != nil {
		return "", err
	}
	if d.UserID != "" && g.Has(d.UserID) {
		if err := g.LinkDiscussionToUser(id, d.UserID); err != nil {
			return id, err
		}
	}
	return id, nil
}

// LinkDiscussionToUser adds a related/undirected edge from a discussion to
// the user node that authored it.
func (g *Graph) LinkDiscussionToUser(discussionID, userID string) error {
	n, ok := g.nodes[discussionID]
	if !ok {
		return fmt.Errorf("%w: discussion %q", ErrNodeNotFound, discussionID)
	}
	if n.typ != NodeDiscussion {
		return fmt.Errorf("graph: node %q is a %s, not a discussion", discussionID, n.typ)
	}
	return g.AddEdge(discussionID, userID, EdgeUndirected, CategoryRelated, DefaultWeight)
}

func (g *Graph) freshID() (string, error) {
	for range maxIDAttempts {
		id := g.ids.NewID()
		if id != "" && !g.Has(id) {
			return id, nil
		}
	}
	return "", ErrIDCollision
}

// cloneData returns a shallow copy so records and graph never share a map.
func cloneData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
