package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/swimlane/pkg/domain"
)

// BoardMarkdown describes a board as markdown tables.
func BoardMarkdown(title string, snap domain.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Version %d: %d nodes, %d cursors.\n\n", snap.Version, len(snap.Nodes), len(snap.Cursors))

	labels := make(map[domain.NodeID]string, len(snap.Nodes))
	if len(snap.Nodes) > 0 {
		sb.WriteString("## Nodes\n\n")
		sb.WriteString("| Label | Type | Row | Col | Transform |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, n := range snap.Nodes {
			labels[n.ID] = n.Label
			fmt.Fprintf(&sb, "| %s | %s | %d | %d | `%s` |\n", cell(n.Label), n.Type, n.Row, n.Col, n.Transform)
		}
		sb.WriteString("\n")
	}

	if len(snap.Cursors) > 0 {
		sb.WriteString("## Cursors\n\n")
		sb.WriteString("| Label | Row | Col | Transform | Selection |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, c := range snap.Cursors {
			selection := make([]string, len(c.Selection))
			for i, s := range c.Selection {
				selection[i] = cell(labels[s.SourceID])
			}
			fmt.Fprintf(&sb, "| %s | %d | %d | `%s` | %s |\n",
				cell(c.Label), c.Row, c.Col, c.Transform, strings.Join(selection, ", "))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
