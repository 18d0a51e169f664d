package seed

import (
	"github.com/starford/trellis/internal/graph"
)

// Report counts what Apply changed and lists what it had to skip.
type Report struct {
	NodesAdded       int
	NodesExisting    int
	EdgesAdded       int
	DiscussionsAdded int
	// Skipped holds one message per edge or discussion that could not be
	// attached because an endpoint is missing.
	Skipped []string
}

type pendingEdge struct {
	from, to string
	typ      graph.EdgeType
	category graph.EdgeCategory
	weight   float64
}

type pendingDiscussion struct {
	parent string
	d      Discussion
}

// Apply adds the document to g. Nodes are inserted first, then edges, then
// discussions, so references may point forward in the document. Existing
// nodes are left untouched.
func (d *Document) Apply(g *graph.Graph) Report {
	var (
		rep         Report
		edges       []pendingEdge
		discussions []pendingDiscussion
	)

	addNode := func(e Entity, t graph.NodeType) {
		if g.AddNode(e.ID, t, e.Data) {
			rep.NodesAdded++
		} else {
			rep.NodesExisting++
		}
	}

	var walkTasks func(parent string, tasks []Task, t graph.NodeType)
	walkTasks = func(parent string, tasks []Task, t graph.NodeType) {
		for _, task := range tasks {
			addNode(task.Entity, t)
			edges = append(edges, pendingEdge{parent, task.ID, graph.EdgeDirected, graph.CategoryAssign, graph.DefaultWeight})
			for _, u := range task.Assignees {
				edges = append(edges, pendingEdge{task.ID, u, graph.EdgeDirected, graph.CategoryAssign, graph.DefaultWeight})
			}
			for _, dep := range task.DependsOn {
				edges = append(edges, pendingEdge{task.ID, dep, graph.EdgeDirected, graph.CategoryDependency, graph.DefaultWeight})
			}
			for _, disc := range task.Discussions {
				discussions = append(discussions, pendingDiscussion{task.ID, disc})
			}
			walkTasks(task.ID, task.SubTasks, graph.NodeSubTask)
		}
	}

	for _, u := range d.Users {
		addNode(u, graph.NodeUser)
	}
	for _, p := range d.Projects {
		addNode(p.Entity, graph.NodeProject)
		for _, disc := range p.Discussions {
			discussions = append(discussions, pendingDiscussion{p.ID, disc})
		}
		walkTasks(p.ID, p.Tasks, graph.NodeTask)
	}
	for _, e := range d.Edges {
		edges = append(edges, pendingEdge{e.From, e.To, graph.EdgeType(e.Type), graph.EdgeCategory(e.Category), e.Weight})
	}

	for _, e := range edges {
		if err := g.AddEdge(e.from, e.to, e.typ, e.category, e.weight); err != nil {
			rep.Skipped = append(rep.Skipped, err.Error())
			continue
		}
		rep.EdgesAdded++
	}

	for _, p := range discussions {
		if _, err := g.AddDiscussion(p.parent, graph.Discussion{
			Author:  p.d.Author,
			Content: p.d.Content,
			UserID:  p.d.User,
		}); err != nil {
			rep.Skipped = append(rep.Skipped, err.Error())
			continue
		}
		rep.DiscussionsAdded++
	}

	return rep
}
