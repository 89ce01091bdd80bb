// Package diagram is a minimal reference exporter for a statechart
// Definition's tree: Graphviz DOT (for visual inspection) and a
// JSON-friendly nested form (for tooling). It is a thin collaborator
// outside the engine's core scope, not a general-purpose diagram
// renderer — grounded on the teacher's internal/production.DefaultVisualizer.
package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/hsm/internal/tree"
)

// ExportDOT renders root as Graphviz DOT source. active, typically
// Machine.Configuration(), highlights the currently active states.
func ExportDOT(root *tree.State, active []string) string {
	activeSet := make(map[string]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, fontsize=10, style=rounded];\n")
	buf.WriteString("  edge [fontsize=9];\n")

	renderState(&buf, root, activeSet)

	for _, edge := range collectEdges(root) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", edge.From, edge.To, edge.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

type edge struct {
	From, To, Label string
}

func collectEdges(s *tree.State) []edge {
	var edges []edge
	for _, t := range s.Transitions {
		if t.Initial {
			continue
		}
		label := "(eventless)"
		if len(t.Events) > 0 {
			label = t.Events[0]
			for _, ev := range t.Events[1:] {
				label += "," + ev
			}
		}
		switch {
		case t.Target != nil:
			edges = append(edges, edge{From: string(s.ID), To: string(t.Target.ID), Label: label})
		case t.TargetHistory != nil:
			edges = append(edges, edge{From: string(s.ID), To: "H_" + string(t.TargetHistory.ID), Label: label})
		}
	}
	for _, c := range s.Children {
		edges = append(edges, collectEdges(c)...)
	}
	return edges
}

func renderState(buf *bytes.Buffer, s *tree.State, active map[string]bool) {
	if len(s.Children) > 0 {
		fmt.Fprintf(buf, "  subgraph cluster_%s {\n", s.ID)
		style := ""
		if active[string(s.ID)] {
			style = " style=filled fillcolor=orange"
		}
		fmt.Fprintf(buf, "    label=%q;%s\n", fmt.Sprintf("%s (%s)", s.ID, s.Kind), style)
		fmt.Fprintf(buf, "    %q [label=%q shape=ellipse%s];\n", s.ID, s.ID, style)
		for _, h := range s.Histories {
			fmt.Fprintf(buf, "    %q [label=%q shape=doublecircle];\n", "H_"+string(h.ID), h.ID)
		}
		for _, c := range s.Children {
			renderState(buf, c, active)
		}
		buf.WriteString("  }\n")
		return
	}

	style := ""
	switch {
	case active[string(s.ID)]:
		style = " style=filled fillcolor=lightgreen"
	case s.IsFinal():
		style = " shape=doublecircle"
	}
	fmt.Fprintf(buf, "  %q [label=%q%s];\n", s.ID, s.ID, style)
}

// node is the JSON-friendly projection of a tree.State: plain strings and
// slices, no back-pointers, suitable for json.Marshal / yaml.Marshal.
type node struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Initial     string         `json:"initial,omitempty"`
	Children    []node         `json:"children,omitempty"`
	Histories   []historyNode  `json:"histories,omitempty"`
	Transitions []transition   `json:"transitions,omitempty"`
}

type historyNode struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Default string `json:"default,omitempty"`
}

type transition struct {
	Events   []string `json:"events,omitempty"`
	Target   string   `json:"target,omitempty"`
	History  string   `json:"history,omitempty"`
	Internal bool     `json:"internal,omitempty"`
}

func toNode(s *tree.State) node {
	n := node{ID: string(s.ID), Kind: s.Kind.String()}
	if s.Initial != nil {
		n.Initial = string(s.Initial.ID)
	}
	for _, h := range s.Histories {
		hn := historyNode{ID: string(h.ID)}
		if h.Kind == tree.Shallow {
			hn.Kind = "shallow"
		} else {
			hn.Kind = "deep"
		}
		if h.Default != nil && h.Default.Target != nil {
			hn.Default = string(h.Default.Target.ID)
		}
		n.Histories = append(n.Histories, hn)
	}
	for _, t := range s.Transitions {
		if t.Initial {
			continue
		}
		tr := transition{Events: t.Events, Internal: t.Internal}
		if t.Target != nil {
			tr.Target = string(t.Target.ID)
		}
		if t.TargetHistory != nil {
			tr.History = string(t.TargetHistory.ID)
		}
		n.Transitions = append(n.Transitions, tr)
	}
	for _, c := range s.Children {
		n.Children = append(n.Children, toNode(c))
	}
	return n
}

// ExportJSON serializes root's full tree to indented JSON.
func ExportJSON(root *tree.State) ([]byte, error) {
	return json.MarshalIndent(toNode(root), "", "  ")
}
