package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trellis/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Whole graph.
	r.Get("/graph", h.Graph)
	r.Post("/graph/save", h.SaveGraph)
	r.Post("/graph/reload", h.ReloadGraph)

	// Nodes and edges.
	r.Post("/nodes", h.CreateNode)
	r.Get("/nodes/{id}", h.GetNode)
	r.Post("/edges", h.CreateEdge)

	// Discussions and traversal queries.
	r.Post("/nodes/{id}/discussions", h.CreateDiscussion)
	r.Get("/nodes/{id}/discussions", h.Discussions)
	r.Get("/nodes/{id}/descendants", h.Descendants)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
