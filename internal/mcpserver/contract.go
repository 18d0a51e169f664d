package mcpserver

// GraphModelContract describes the node and edge vocabulary that LLM
// consumers should use when adding to the graph.
const GraphModelContract = `# Trellis Graph Model

Trellis stores projects, tasks, users and discussions as a directed graph.

## Node types

| type         | meaning                                   |
|--------------|-------------------------------------------|
| ` + "`project`" + `    | top-level container                       |
| ` + "`task`" + `       | unit of work, usually under a project     |
| ` + "`sub_task`" + `   | unit of work under a task                 |
| ` + "`user`" + `       | person who can be assigned or post        |
| ` + "`discussion`" + ` | comment attached to any node              |

Node ids are unique. Adding a node with an existing id is rejected.
Node ` + "`data`" + ` is a free-form JSON object.

## Edges

Every edge has a ` + "`type`" + ` (` + "`directed`" + ` or ` + "`undirected`" + `), a
` + "`category`" + ` (` + "`assign`" + `, ` + "`dependency`" + ` or ` + "`related`" + `) and a
positive ` + "`weight`" + ` (default 1). Both endpoints must already exist.

Conventions:

- project -> task and task -> sub_task: directed, assign
- task -> user (assignee): directed, assign
- task -> task it waits on: directed, dependency
- discussion -> user (author): undirected, related

Traversal only follows an edge from its ` + "`fromNodeId`" + ` side, including
undirected edges.

## Discussions

Use ` + "`add_discussion`" + ` rather than ` + "`add_node`" + ` for discussions. The server
assigns the id (` + "`discussion_<uuid>`" + `), stamps ` + "`timestamp`" + `, links the
parent to the discussion and, when ` + "`userId`" + ` names an existing user, links the
discussion to that user.

## Queries

- ` + "`find_nodes_by_type`" + ` returns every node of a type reachable from a parent,
  the parent included, in depth-first pre-order.
- ` + "`find_discussions_by_user`" + ` returns reachable discussions linked to a user
  in either direction.

Changes live in memory until ` + "`save_graph`" + ` is called.
`
