package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/graphservice"
)

// CreateNodeRequest is the request body for creating a node.
type CreateNodeRequest struct {
	NodeID string         `json:"nodeId" example:"task1" validate:"required"`
	Type   graph.NodeType `json:"type" example:"task" validate:"required"`
	Data   map[string]any `json:"data,omitempty"`
}

// Validate validates the request.
func (r *CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NodeID, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Type, validation.Required, validation.In(nodeTypes()...)),
	)
}

// CreateEdgeRequest is the request body for creating an edge.
type CreateEdgeRequest struct {
	FromNodeID string             `json:"fromNodeId" example:"project1" validate:"required"`
	ToNodeID   string             `json:"toNodeId" example:"task1" validate:"required"`
	Type       graph.EdgeType     `json:"type" example:"directed" validate:"required"`
	Category   graph.EdgeCategory `json:"category" example:"assign" validate:"required"`
	Weight     float64            `json:"weight" example:"1"`
}

// Validate validates the request.
func (r *CreateEdgeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FromNodeID, validation.Required),
		validation.Field(&r.ToNodeID, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(graph.EdgeDirected, graph.EdgeUndirected)),
		validation.Field(&r.Category, validation.Required,
			validation.In(graph.CategoryAssign, graph.CategoryDependency, graph.CategoryRelated)),
		validation.Field(&r.Weight, validation.Min(0.0)),
	)
}

// Record converts the request to an edge record.
func (r *CreateEdgeRequest) Record() graph.EdgeRecord {
	return graph.EdgeRecord{
		FromNodeID: r.FromNodeID,
		ToNodeID:   r.ToNodeID,
		Type:       r.Type,
		Category:   r.Category,
		Weight:     r.Weight,
	}
}

// CreateDiscussionRequest is the request body for attaching a discussion.
type CreateDiscussionRequest struct {
	Author  string `json:"author" example:"John Doe"`
	Content string `json:"content" example:"Discussing progress..." validate:"required"`
	UserID  string `json:"userId,omitempty" example:"user1"`
}

// Validate validates the request.
func (r *CreateDiscussionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

// NodeResponse is a node with its outgoing edges.
type NodeResponse = graphservice.NodeView

// NodeListResponse wraps a query result.
type NodeListResponse struct {
	Nodes []NodeResponse `json:"nodes" validate:"required"`
}

// GraphResponse is the flattened graph.
type GraphResponse struct {
	Nodes  []graph.NodeRecord  `json:"nodes" validate:"required"`
	Edges  []graph.EdgeRecord  `json:"edges" validate:"required"`
	Status graphservice.Status `json:"status"`
}

// ReloadResponse summarises a reload.
type ReloadResponse struct {
	NodesInserted  int                `json:"nodesInserted"`
	NodesDuplicate int                `json:"nodesDuplicate"`
	EdgesInserted  int                `json:"edgesInserted"`
	DroppedEdges   []graph.EdgeRecord `json:"droppedEdges"`
}

func nodeTypes() []any {
	out := make([]any, len(graph.NodeTypes))
	for i, t := range graph.NodeTypes {
		out[i] = t
	}
	return out
}
