package domain

import "slices"

// NodeView is an immutable, serializable read of a Node.
type NodeView struct {
	ID        NodeID   `json:"id"`
	Label     string   `json:"label"`
	Type      NodeType `json:"node_type"`
	Row       int      `json:"row"`
	Col       int      `json:"col"`
	Position  Pos      `json:"position"`
	Transform string   `json:"transform"`
}

// SelectionView is an immutable read of a SelectedNode.
type SelectionView struct {
	ID        SelectionID `json:"id"`
	SourceID  NodeID      `json:"source_id"`
	Transform string      `json:"transform"`
}

// CursorView is an immutable, serializable read of a Cursor.
type CursorView struct {
	ID                 CursorID        `json:"id"`
	Label              string          `json:"label"`
	Row                int             `json:"row"`
	Col                int             `json:"col"`
	Top                int             `json:"top"`
	Left               int             `json:"left"`
	Transform          string          `json:"transform"`
	SelectionTransform string          `json:"selection_transform"`
	Selection          []SelectionView `json:"selection"`
}

// Snapshot is the whole read side of a board at one version.
type Snapshot struct {
	Version uint64       `json:"version"`
	Nodes   []NodeView   `json:"nodes"`
	Cursors []CursorView `json:"cursors"`
}

// ViewNode reads n.
func ViewNode(n *Node) NodeView {
	pos := n.Position()
	return NodeView{
		ID:        n.ID(),
		Label:     n.Label(),
		Type:      n.Type(),
		Row:       n.Row(),
		Col:       n.Col(),
		Position:  pos,
		Transform: pos.Transform(),
	}
}

// ViewCursor reads c, including its current selection.
func ViewCursor(c *Cursor) CursorView {
	pos := c.Position()
	selected := c.SelectedNodes()
	selection := make([]SelectionView, len(selected))
	for i, s := range selected {
		selection[i] = SelectionView{
			ID:        s.ID(),
			SourceID:  s.SourceID(),
			Transform: s.Transform(),
		}
	}
	return CursorView{
		ID:                 c.ID(),
		Label:              c.Label(),
		Row:                c.Row(),
		Col:                c.Col(),
		Top:                pos.Y,
		Left:               pos.X,
		Transform:          pos.Transform(),
		SelectionTransform: c.SelectionTransform(),
		Selection:          selection,
	}
}

// SnapshotDiff carries the nodes and cursors that were added or changed
// between two snapshots. Registries are append-only, so there are no removals.
type SnapshotDiff struct {
	Version uint64       `json:"version"`
	Nodes   []NodeView   `json:"nodes,omitempty"`
	Cursors []CursorView `json:"cursors,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, the diff contains all of newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{Version: newSnap.Version}

	oldNodes := make(map[NodeID]NodeView)
	oldCursors := make(map[CursorID]CursorView)
	if oldSnap != nil {
		for _, n := range oldSnap.Nodes {
			oldNodes[n.ID] = n
		}
		for _, c := range oldSnap.Cursors {
			oldCursors[c.ID] = c
		}
	}

	for _, n := range newSnap.Nodes {
		if prev, ok := oldNodes[n.ID]; !ok || prev != n {
			diff.Nodes = append(diff.Nodes, n)
		}
	}
	for _, c := range newSnap.Cursors {
		if prev, ok := oldCursors[c.ID]; !ok || !cursorViewEqual(prev, c) {
			diff.Cursors = append(diff.Cursors, c)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return len(d.Nodes) == 0 && len(d.Cursors) == 0
}

func cursorViewEqual(a, b CursorView) bool {
	return a.ID == b.ID &&
		a.Label == b.Label &&
		a.Row == b.Row &&
		a.Col == b.Col &&
		a.Top == b.Top &&
		a.Left == b.Left &&
		a.Transform == b.Transform &&
		a.SelectionTransform == b.SelectionTransform &&
		slices.Equal(a.Selection, b.Selection)
}
