package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/trellis/internal/graph"
	"github.com/starford/trellis/internal/graphservice"
	"github.com/starford/trellis/internal/testutil"
)

// testEnv sets up a temp record directory, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*graphservice.Service, http.Handler) {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*graphservice.Service, http.Handler) {
	t.Helper()

	svc := testutil.TestService(t, testutil.TestFileStore(t))
	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return svc, router
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// seedProject creates project1 -> task1 -> user1 and a discussion on task1
// linked to user1.
func seedProject(t *testing.T, router http.Handler) {
	t.Helper()
	for _, n := range []CreateNodeRequest{
		{NodeID: "project1", Type: graph.NodeProject, Data: map[string]any{"name": "Project A"}},
		{NodeID: "task1", Type: graph.NodeTask, Data: map[string]any{"title": "Task 1"}},
		{NodeID: "user1", Type: graph.NodeUser, Data: map[string]any{"name": "John Doe"}},
	} {
		if w := do(t, router, http.MethodPost, "/nodes", n); w.Code != http.StatusCreated {
			t.Fatalf("create %s = %d, body = %s", n.NodeID, w.Code, w.Body.String())
		}
	}
	for _, e := range []CreateEdgeRequest{
		{FromNodeID: "project1", ToNodeID: "task1", Type: graph.EdgeDirected, Category: graph.CategoryAssign},
		{FromNodeID: "task1", ToNodeID: "user1", Type: graph.EdgeDirected, Category: graph.CategoryAssign},
	} {
		if w := do(t, router, http.MethodPost, "/edges", e); w.Code != http.StatusCreated {
			t.Fatalf("create edge = %d, body = %s", w.Code, w.Body.String())
		}
	}
	w := do(t, router, http.MethodPost, "/nodes/task1/discussions",
		CreateDiscussionRequest{Author: "John Doe", Content: "Discussing progress", UserID: "user1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create discussion = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCreateAndGetNode(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{
		NodeID: "project1", Type: graph.NodeProject, Data: map[string]any{"name": "Project A"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/nodes/project1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var node NodeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &node)
	if node.ID != "project1" || node.Type != graph.NodeProject {
		t.Errorf("node = %+v", node)
	}
	if node.Data["name"] != "Project A" {
		t.Errorf("data = %v", node.Data)
	}
}

func TestCreateNode_Duplicate(t *testing.T) {
	_, router := testEnv(t, "")

	req := CreateNodeRequest{NodeID: "dup", Type: graph.NodeTask}
	if w := do(t, router, http.MethodPost, "/nodes", req); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/nodes", req); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateNode_Invalid(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []struct {
		name string
		body any
	}{
		{"missing id", CreateNodeRequest{Type: graph.NodeTask}},
		{"unknown type", CreateNodeRequest{NodeID: "x", Type: "epic"}},
		{"not json", "just a string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/nodes", tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetNode_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/nodes/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing node = %d, want 404", w.Code)
	}
}

func TestCreateEdge_DefaultWeight(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{NodeID: "a", Type: graph.NodeTask})
	do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{NodeID: "b", Type: graph.NodeTask})

	w := do(t, router, http.MethodPost, "/edges", CreateEdgeRequest{
		FromNodeID: "a", ToNodeID: "b", Type: graph.EdgeDirected, Category: graph.CategoryDependency,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create edge = %d, body = %s", w.Code, w.Body.String())
	}
	var rec graph.EdgeRecord
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if rec.Weight != graph.DefaultWeight {
		t.Errorf("weight = %v, want %v", rec.Weight, graph.DefaultWeight)
	}
}

func TestCreateEdge_MissingEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{NodeID: "a", Type: graph.NodeTask})

	w := do(t, router, http.MethodPost, "/edges", CreateEdgeRequest{
		FromNodeID: "a", ToNodeID: "ghost", Type: graph.EdgeDirected, Category: graph.CategoryAssign,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("edge to missing node = %d, want 404", w.Code)
	}
}

func TestCreateEdge_Invalid(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/edges", CreateEdgeRequest{
		FromNodeID: "a", ToNodeID: "b", Type: "sideways", Category: graph.CategoryAssign,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad edge type = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/edges", CreateEdgeRequest{
		FromNodeID: "a", ToNodeID: "b", Type: graph.EdgeDirected, Category: graph.CategoryAssign, Weight: -1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative weight = %d, want 400", w.Code)
	}
}

func TestCreateDiscussion_MissingParent(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/nodes/ghost/discussions", CreateDiscussionRequest{Content: "hi"})
	if w.Code != http.StatusNotFound {
		t.Errorf("discussion on missing parent = %d, want 404", w.Code)
	}
}

func TestDescendants(t *testing.T) {
	_, router := testEnv(t, "")
	seedProject(t, router)

	w := do(t, router, http.MethodGet, "/nodes/project1/descendants?type=user", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("descendants = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NodeListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 1 || resp.Nodes[0].ID != "user1" {
		t.Errorf("users under project1 = %+v", resp.Nodes)
	}

	w = do(t, router, http.MethodGet, "/nodes/ghost/descendants?type=task", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("descendants of missing parent = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 0 {
		t.Errorf("expected empty result, got %d", len(resp.Nodes))
	}

	if w := do(t, router, http.MethodGet, "/nodes/project1/descendants?type=epic", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type = %d, want 400", w.Code)
	}
}

func TestDiscussionsByUser(t *testing.T) {
	_, router := testEnv(t, "")
	seedProject(t, router)

	w := do(t, router, http.MethodGet, "/nodes/project1/discussions?user=user1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("discussions = %d, body = %s", w.Code, w.Body.String())
	}
	var resp NodeListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Nodes) != 1 {
		t.Fatalf("discussions = %d, want 1", len(resp.Nodes))
	}
	d := resp.Nodes[0]
	if d.ID != "discussion_1" || d.Type != graph.NodeDiscussion {
		t.Errorf("discussion = %+v", d)
	}
	if d.Data[graph.DataContent] != "Discussing progress" {
		t.Errorf("content = %v", d.Data[graph.DataContent])
	}

	if w := do(t, router, http.MethodGet, "/nodes/project1/discussions", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing user = %d, want 400", w.Code)
	}
}

func TestGraphSaveAndReload(t *testing.T) {
	svc, router := testEnv(t, "")
	seedProject(t, router)

	w := do(t, router, http.MethodGet, "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var g GraphResponse
	_ = json.Unmarshal(w.Body.Bytes(), &g)
	if len(g.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(g.Nodes))
	}
	if !g.Status.Dirty {
		t.Error("graph should be dirty before save")
	}

	if w := do(t, router, http.MethodPost, "/graph/save", nil); w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.Status().Dirty {
		t.Error("graph should be clean after save")
	}

	w = do(t, router, http.MethodPost, "/graph/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload = %d, body = %s", w.Code, w.Body.String())
	}
	var rep ReloadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rep)
	if rep.NodesInserted != 4 || rep.EdgesInserted != len(g.Edges) {
		t.Errorf("reload report = %+v, edges before = %d", rep, len(g.Edges))
	}
	if len(rep.DroppedEdges) != 0 {
		t.Errorf("dropped = %v", rep.DroppedEdges)
	}
}

type failingRepo struct{}

var errDown = errors.New("store down")

func (failingRepo) LoadNodes(context.Context) ([]graph.NodeRecord, error) { return nil, errDown }
func (failingRepo) LoadEdges(context.Context) ([]graph.EdgeRecord, error) { return nil, errDown }
func (failingRepo) SaveNodes(context.Context, []graph.NodeRecord) error   { return errDown }
func (failingRepo) SaveEdges(context.Context, []graph.EdgeRecord) error   { return errDown }
func (failingRepo) Close() error                                          { return nil }

func TestGraphSave_StoreUnavailable(t *testing.T) {
	svc := graphservice.New(failingRepo{}, graphservice.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	router := NewRouter(svc, false, "", nil)

	// Nothing was ever loaded, so creating a node must not make save possible.
	if w := do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{NodeID: "x", Type: graph.NodeTask}); w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/graph/save", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("save = %d, want 503", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/graph/reload", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("reload = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(CreateNodeRequest{NodeID: "a", Type: graph.NodeTask})
	req := httptest.NewRequest(http.MethodPost, "/nodes", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/graph", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/graph", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvFull(t, true, "secret", blockingSSE)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router := testEnvFull(t, false, "", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvFull(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	_, router := testEnvFull(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with query token should not 401")
	}

	req = httptest.NewRequest(http.MethodPost, "/nodes?access_token=tok", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on POST = %d, want 401", w.Code)
	}
}
