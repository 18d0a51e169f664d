package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trellis/internal/apperr"
	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/graphservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// validatable is implemented by request DTOs.
type validatable interface {
	Validate() error
}

// decode reads a JSON body into dst and validates it. It writes a 400 and
// returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := dst.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// Graph handles GET /api/graph.
//
//	@Summary		Export the whole graph as flat records
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.svc.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Edges: edges, Status: h.svc.Status()})
}

// SaveGraph handles POST /api/graph/save.
//
//	@Summary		Persist the graph to the record store
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	graphservice.Status
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/save [post]
func (h *Handler) SaveGraph(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Save(r.Context()); err != nil {
		writeServiceError(w, "save graph", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// ReloadGraph handles POST /api/graph/reload.
//
//	@Summary		Rebuild the graph from the record store
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	ReloadResponse
//	@Failure		409	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/reload [post]
func (h *Handler) ReloadGraph(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Reload(r.Context())
	if err != nil {
		writeServiceError(w, "reload graph", err)
		return
	}
	dropped := make([]graph.EdgeRecord, 0, len(rep.DroppedEdges))
	dropped = append(dropped, rep.DroppedEdges...)
	writeJSON(w, http.StatusOK, ReloadResponse{
		NodesInserted:  rep.NodesInserted,
		NodesDuplicate: rep.NodesDuplicate,
		EdgesInserted:  rep.EdgesInserted,
		DroppedEdges:   dropped,
	})
}

// CreateNode handles POST /api/nodes.
//
//	@Summary		Create a node
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNodeRequest	true	"Node"
//	@Success		201		{object}	NodeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.svc.AddNode(r.Context(), req.NodeID, req.Type, req.Data)
	if err != nil {
		writeServiceError(w, "create node", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a node with its outgoing edges
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CreateEdge handles POST /api/edges.
//
//	@Summary		Link two existing nodes
//	@Tags			edges
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEdgeRequest	true	"Edge"
//	@Success		201		{object}	graph.EdgeRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [post]
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if !decode(w, r, &req) {
		return
	}
	rec := req.Record()
	if err := h.svc.AddEdge(r.Context(), rec); err != nil {
		writeServiceError(w, "create edge", err)
		return
	}
	if rec.Weight == 0 {
		rec.Weight = graph.DefaultWeight
	}
	writeJSON(w, http.StatusCreated, rec)
}

// CreateDiscussion handles POST /api/nodes/{id}/discussions.
//
//	@Summary		Attach a discussion to a node
//	@Tags			discussions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Parent node id"
//	@Param			body	body		CreateDiscussionRequest	true	"Discussion"
//	@Success		201		{object}	NodeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id}/discussions [post]
func (h *Handler) CreateDiscussion(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscussionRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.svc.AddDiscussion(r.Context(), chi.URLParam(r, "id"), graph.Discussion{
		Author:  req.Author,
		Content: req.Content,
		UserID:  req.UserID,
	})
	if err != nil {
		writeServiceError(w, "create discussion", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// Descendants handles GET /api/nodes/{id}/descendants.
//
//	@Summary		Find nodes of a type reachable from a node
//	@Tags			queries
//	@Produce		json
//	@Param			id		path		string	true	"Parent node id"
//	@Param			type	query		string	true	"Node type"	Enums(project, task, sub_task, user, discussion)
//	@Success		200		{object}	NodeListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id}/descendants [get]
func (h *Handler) Descendants(w http.ResponseWriter, r *http.Request) {
	t, err := graph.ParseNodeType(r.URL.Query().Get("type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	nodes, err := h.svc.FindNodesByType(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		writeServiceError(w, "find nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: nodes})
}

// Discussions handles GET /api/nodes/{id}/discussions.
//
//	@Summary		Find discussions under a node linked to a user
//	@Tags			queries
//	@Produce		json
//	@Param			id		path		string	true	"Parent node id"
//	@Param			user	query		string	true	"User node id"
//	@Success		200		{object}	NodeListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id}/discussions [get]
func (h *Handler) Discussions(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.FindDiscussionsByUser(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("user"))
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("user query parameter is required"))
			return
		}
		writeServiceError(w, "find discussions", err)
		return
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: nodes})
}
