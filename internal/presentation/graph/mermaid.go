package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/swimlane/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a board. Each row becomes
// a lane (subgraph) with its nodes ordered by column. Shapes follow the
// node type:
// - Role: ((Circle))
// - Command: [Rectangle]
// - Event: {{Hexagon}}
// - View: [/Parallelogram/]
// Nodes selected by any cursor get the "selected" class.
func GenerateMermaid(snap domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	lanes := make(map[int][]domain.NodeView)
	for _, n := range snap.Nodes {
		lanes[n.Row] = append(lanes[n.Row], n)
	}
	rows := make([]int, 0, len(lanes))
	for row := range lanes {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	for _, row := range rows {
		nodes := lanes[row]
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Col < nodes[j].Col })

		sb.WriteString(fmt.Sprintf("    subgraph lane_%s[\"lane %d\"]\n", laneID(row), row))
		for _, n := range nodes {
			opener, closer := shape(n.Type)
			sb.WriteString(fmt.Sprintf("        %s%s\"%s\"%s\n", mermaidID(n.ID), opener, escapeLabel(n.Label), closer))
		}
		// Invisible links keep column order inside the lane.
		for i := 1; i < len(nodes); i++ {
			sb.WriteString(fmt.Sprintf("        %s ~~~ %s\n", mermaidID(nodes[i-1].ID), mermaidID(nodes[i].ID)))
		}
		sb.WriteString("    end\n")
	}

	selected := make(map[domain.NodeID]bool)
	for _, c := range snap.Cursors {
		for _, s := range c.Selection {
			selected[s.SourceID] = true
		}
	}
	if len(selected) > 0 {
		sb.WriteString("\n    %% Selection\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, n := range snap.Nodes {
			if selected[n.ID] {
				sb.WriteString(fmt.Sprintf("    class %s selected;\n", mermaidID(n.ID)))
			}
		}
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeRole:
		return "((", "))"
	case domain.NodeTypeEvent:
		return "{{", "}}"
	case domain.NodeTypeView:
		return "[/", "/]"
	default:
		return "[", "]"
	}
}

func mermaidID(id domain.NodeID) string {
	return "n_" + strings.ReplaceAll(id.String(), "-", "_")
}

func laneID(row int) string {
	if row < 0 {
		return fmt.Sprintf("m%d", -row)
	}
	return fmt.Sprintf("%d", row)
}

func escapeLabel(s string) string {
	// Escape double quotes for Mermaid label
	return strings.ReplaceAll(s, "\"", "'")
}
