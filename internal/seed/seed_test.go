package seed

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/trellis/internal/graph"
)

func loadDemo(t *testing.T) *Document {
	t.Helper()
	data, err := os.ReadFile("testdata/demo.yaml")
	require.NoError(t, err)
	doc, err := Parse(data)
	require.NoError(t, err)
	return doc
}

func nodeIDs(nodes []*graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID())
	}
	return out
}

func TestParse_Demo(t *testing.T) {
	doc := loadDemo(t)
	require.Len(t, doc.Users, 2)
	require.Len(t, doc.Projects, 2)
	assert.Equal(t, "John Doe", doc.Users[0].Data["name"])
	assert.Equal(t, "project1", doc.Projects[0].ID)
	require.Len(t, doc.Projects[0].Tasks, 2)
	assert.Len(t, doc.Projects[0].Tasks[0].SubTasks, 2)
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Projects)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown key", "projects:\n  - id: p\n    colour: red\n"},
		{"missing user id", "users:\n  - data: {name: x}\n"},
		{"missing subtask id", "projects:\n  - id: p\n    tasks:\n      - id: t\n        subtasks:\n          - data: {}\n"},
		{"bad edge type", "edges:\n  - {from: a, to: b, type: both, category: related}\n"},
		{"bad edge category", "edges:\n  - {from: a, to: b, type: directed, category: blocks}\n"},
		{"malformed", "projects: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestApply_Demo(t *testing.T) {
	doc := loadDemo(t)
	g := graph.New(graph.WithIDGenerator(&graph.SequenceGenerator{}))

	rep := doc.Apply(g)
	assert.Equal(t, 10, rep.NodesAdded)
	assert.Equal(t, 4, rep.DiscussionsAdded)
	assert.Empty(t, rep.Skipped)

	subTasks := nodeIDs(g.FindNodesByTypeUnderParent("project1", graph.NodeSubTask))
	assert.Equal(t, []string{"subTask1", "subTask2", "subTask3", "subTask4"}, subTasks)

	assert.Len(t, g.FindNodesByTypeUnderParent("subTask1", graph.NodeDiscussion), 2)
	assert.Len(t, g.FindDiscussionsByUserUnderParent("project1", "user1"), 2)
	assert.Len(t, g.FindDiscussionsByUserUnderParent("subTask1", "user2"), 1)
	assert.Empty(t, g.FindDiscussionsByUserUnderParent("project2", "user1"))
}

func TestApply_IsIdempotentForNodes(t *testing.T) {
	doc := loadDemo(t)
	g := graph.New()
	doc.Apply(g)

	rep := doc.Apply(g)
	assert.Zero(t, rep.NodesAdded)
	assert.Equal(t, 10, rep.NodesExisting)
}

func TestApply_SkipsDanglingReferences(t *testing.T) {
	doc, err := Parse([]byte(`
projects:
  - id: p
    tasks:
      - id: t
        assignees: [ghost]
edges:
  - {from: t, to: nowhere, type: undirected, category: related}
`))
	require.NoError(t, err)

	g := graph.New()
	rep := doc.Apply(g)
	assert.Equal(t, 1, rep.EdgesAdded)
	assert.Len(t, rep.Skipped, 2)
}
