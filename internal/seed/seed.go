// Package seed reads hierarchical YAML documents describing projects, tasks,
// sub-tasks, users and discussions, and applies them to a graph.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/starford/trellis/internal/graph"
)

// Document is the root of a seed file.
type Document struct {
	Users    []Entity  `yaml:"users"`
	Projects []Project `yaml:"projects"`
	Edges    []Edge    `yaml:"edges"`
}

// Entity is any node with an id and a payload.
type Entity struct {
	ID   string         `yaml:"id"`
	Data map[string]any `yaml:"data"`
}

// Project is a project node with its tasks.
type Project struct {
	Entity      `yaml:",inline"`
	Tasks       []Task       `yaml:"tasks"`
	Discussions []Discussion `yaml:"discussions"`
}

// Task is a task or sub-task node.
type Task struct {
	Entity      `yaml:",inline"`
	Assignees   []string     `yaml:"assignees"`
	DependsOn   []string     `yaml:"depends_on"`
	Discussions []Discussion `yaml:"discussions"`
	SubTasks    []Task       `yaml:"subtasks"`
}

// Discussion is a comment attached to its enclosing project or task.
type Discussion struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
	User    string `yaml:"user"`
}

// Edge is an explicit extra edge.
type Edge struct {
	From     string  `yaml:"from"`
	To       string  `yaml:"to"`
	Type     string  `yaml:"type"`
	Category string  `yaml:"category"`
	Weight   float64 `yaml:"weight"`
}

// Parse decodes a seed document. Unknown keys, empty ids and unknown edge
// types or categories are errors.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	for i, u := range d.Users {
		if u.ID == "" {
			return fmt.Errorf("seed: users[%d]: id is required", i)
		}
	}
	for i, p := range d.Projects {
		if p.ID == "" {
			return fmt.Errorf("seed: projects[%d]: id is required", i)
		}
		if err := validateTasks(p.Tasks, fmt.Sprintf("projects[%d]", i)); err != nil {
			return err
		}
	}
	for i, e := range d.Edges {
		if e.From == "" || e.To == "" {
			return fmt.Errorf("seed: edges[%d]: from and to are required", i)
		}
		if _, err := graph.ParseEdgeType(e.Type); err != nil {
			return fmt.Errorf("seed: edges[%d]: %w", i, err)
		}
		if _, err := graph.ParseEdgeCategory(e.Category); err != nil {
			return fmt.Errorf("seed: edges[%d]: %w", i, err)
		}
	}
	return nil
}

func validateTasks(tasks []Task, where string) error {
	for i, t := range tasks {
		at := fmt.Sprintf("%s.tasks[%d]", where, i)
		if t.ID == "" {
			return fmt.Errorf("seed: %s: id is required", at)
		}
		if err := validateTasks(t.SubTasks, at); err != nil {
			return err
		}
	}
	return nil
}
