package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Node is a backend-independent view of a graph node.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a backend-independent view of a directed, labeled edge.
type Edge struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties,omitempty"`
}

// State is a snapshot of the knowledge graph, independent of which
// backend produced it. The same write sequence must yield the same State
// regardless of backend.
type State struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// IsEmpty reports whether the graph holds no nodes and no edges.
func (s State) IsEmpty() bool {
	return len(s.Nodes) == 0 && len(s.Edges) == 0
}

// Render produces a deterministic textual description of the graph for
// prompt embedding. Nodes and edges are grouped by label and sorted, so
// two equivalent states always render identically.
func (s State) Render() string {
	if s.IsEmpty() {
		return "The knowledge graph is empty."
	}

	var b strings.Builder

	nodesByLabel := make(map[string][]Node)
	for _, n := range s.Nodes {
		nodesByLabel[n.Label] = append(nodesByLabel[n.Label], n)
	}

	labels := make([]string, 0, len(nodesByLabel))
	for label := range nodesByLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	b.WriteString("Nodes:\n")
	for _, label := range labels {
		nodes := nodesByLabel[label]
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

		fmt.Fprintf(&b, "  %s:\n", label)
		for _, n := range nodes {
			fmt.Fprintf(&b, "    - %s %s\n", n.ID, renderProperties(n.Properties))
		}
	}

	if len(s.Edges) == 0 {
		return b.String()
	}

	edgesByLabel := make(map[string][]Edge)
	for _, e := range s.Edges {
		edgesByLabel[e.Label] = append(edgesByLabel[e.Label], e)
	}

	labels = labels[:0]
	for label := range edgesByLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	b.WriteString("Relationships:\n")
	for _, label := range labels {
		edges := edgesByLabel[label]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].Source != edges[j].Source {
				return edges[i].Source < edges[j].Source
			}
			if edges[i].Target != edges[j].Target {
				return edges[i].Target < edges[j].Target
			}
			return edges[i].ID < edges[j].ID
		})

		fmt.Fprintf(&b, "  %s:\n", label)
		for _, e := range edges {
			props := renderProperties(e.Properties)
			if props == "{}" {
				fmt.Fprintf(&b, "    - (%s) -> (%s)\n", e.Source, e.Target)
			} else {
				fmt.Fprintf(&b, "    - (%s) -> (%s) %s\n", e.Source, e.Target, props)
			}
		}
	}

	return b.String()
}

// renderProperties renders a property map with sorted keys.
func renderProperties(props map[string]any) string {
	if len(props) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, props[k])
	}
	b.WriteString("}")
	return b.String()
}

// MarshalIndented serializes the state for snapshot files. Nodes and
// edges are sorted first so snapshots diff cleanly across runs.
func (s State) MarshalIndented() ([]byte, error) {
	sorted := State{
		Nodes: append([]Node(nil), s.Nodes...),
		Edges: append([]Edge(nil), s.Edges...),
	}
	sort.Slice(sorted.Nodes, func(i, j int) bool { return sorted.Nodes[i].ID < sorted.Nodes[j].ID })
	sort.Slice(sorted.Edges, func(i, j int) bool { return sorted.Edges[i].ID < sorted.Edges[j].ID })
	return json.MarshalIndent(sorted, "", "  ")
}
