// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Trellis graph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/graphservice"
)

const graphModelURI = "trellis://graph-model"

// Server wraps the MCP server with Trellis tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphservice.Service
}

// New creates a new MCP server with all Trellis tools registered.
func New(svc *graphservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Trellis",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	nodeTypes := make([]string, len(graph.NodeTypes))
	for i, t := range graph.NodeTypes {
		nodeTypes[i] = string(t)
	}

	s.mcp.AddTool(mcp.NewTool("find_nodes_by_type",
		mcp.WithDescription("List every node of the given type reachable from a parent node, in depth-first order."),
		mcp.WithString("parentId", mcp.Required(), mcp.Description("Node id to start from (included if it matches)")),
		mcp.WithString("type", mcp.Required(), mcp.Enum(nodeTypes...), mcp.Description("Node type to collect")),
	), s.findNodesByType)

	s.mcp.AddTool(mcp.NewTool("find_discussions_by_user",
		mcp.WithDescription("List discussions reachable from a parent node that are linked to a user."),
		mcp.WithString("parentId", mcp.Required(), mcp.Description("Node id to start from")),
		mcp.WithString("userId", mcp.Required(), mcp.Description("User node id")),
	), s.findDiscussionsByUser)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read a node with its data and outgoing edges."),
		mcp.WithString("nodeId", mcp.Required(), mcp.Description("Node id")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Create a node. Read the graph model first via the get_graph_model tool "+
			"or the trellis://graph-model resource. Use add_discussion for discussions."),
		mcp.WithString("nodeId", mcp.Required(), mcp.Description("Unique node id")),
		mcp.WithString("type", mcp.Required(), mcp.Enum(nodeTypes...), mcp.Description("Node type")),
		mcp.WithObject("data", mcp.Description("Free-form node attributes")),
	), s.addNode)

	s.mcp.AddTool(mcp.NewTool("add_edge",
		mcp.WithDescription("Link two existing nodes."),
		mcp.WithString("fromNodeId", mcp.Required(), mcp.Description("Source node id")),
		mcp.WithString("toNodeId", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithString("type", mcp.Required(), mcp.Enum(string(graph.EdgeDirected), string(graph.EdgeUndirected))),
		mcp.WithString("category", mcp.Required(),
			mcp.Enum(string(graph.CategoryAssign), string(graph.CategoryDependency), string(graph.CategoryRelated))),
		mcp.WithNumber("weight", mcp.Description("Edge weight, defaults to 1")),
	), s.addEdge)

	s.mcp.AddTool(mcp.NewTool("add_discussion",
		mcp.WithDescription("Attach a discussion to a node, optionally linking it to the posting user."),
		mcp.WithString("parentId", mcp.Required(), mcp.Description("Node the discussion belongs to")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Discussion text")),
		mcp.WithString("author", mcp.Description("Display name of the author")),
		mcp.WithString("userId", mcp.Description("User node id to link the discussion to")),
	), s.addDiscussion)

	s.mcp.AddTool(mcp.NewTool("save_graph",
		mcp.WithDescription("Persist the in-memory graph to the record store."),
	), s.saveGraph)

	s.mcp.AddTool(mcp.NewTool("get_graph_model",
		mcp.WithDescription("Returns the Trellis graph model: node types, edge conventions and query semantics."),
	), s.getGraphModel)

	s.mcp.AddResource(
		mcp.NewResource(graphModelURI, "Graph Model",
			mcp.WithResourceDescription("Node and edge vocabulary used by Trellis."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGraphModelResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) findNodesByType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := req.RequireString("parentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.FindNodesByType(ctx, parent, graph.NodeType(typ))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodes), nil
}

func (s *Server) findDiscussionsByUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := req.RequireString("parentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	user, err := req.RequireString("userId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.FindDiscussionsByUser(ctx, parent, user)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodes), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("nodeId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(view), nil
}

func (s *Server) addNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("nodeId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var data map[string]any
	if raw, ok := req.GetArguments()["data"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("data must be an object"), nil
		}
		data = m
	}
	if _, err := s.svc.AddNode(ctx, id, graph.NodeType(typ), data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", id)), nil
}

func (s *Server) addEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("fromNodeId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("toNodeId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec := graph.EdgeRecord{
		FromNodeID: from,
		ToNodeID:   to,
		Type:       graph.EdgeType(typ),
		Category:   graph.EdgeCategory(category),
		Weight:     req.GetFloat("weight", graph.DefaultWeight),
	}
	if err := s.svc.AddEdge(ctx, rec); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked: %s -> %s", from, to)), nil
}

func (s *Server) addDiscussion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parent, err := req.RequireString("parentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.AddDiscussion(ctx, parent, graph.Discussion{
		Author:  req.GetString("author", ""),
		Content: content,
		UserID:  req.GetString("userId", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view), nil
}

func (s *Server) saveGraph(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.Save(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st := s.svc.Status()
	return mcp.NewToolResultText(fmt.Sprintf("saved: %d nodes, %d edges", st.Nodes, st.Edges)), nil
}

func (s *Server) getGraphModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GraphModelContract), nil
}

func (s *Server) readGraphModelResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphModelURI,
			MIMEType: "text/markdown",
			Text:     GraphModelContract,
		},
	}, nil
}
