package domain

import "sync"

// Node is a typed box placed in a swimlane cell.
// Its position is derived from row and col and is never stored on its own.
type Node struct {
	id       NodeID
	nodeType NodeType

	label *Signal[string]
	row   *Signal[int]
	col   *Signal[int]
	pos   *Memo[Pos]
}

// NewNode builds a node. Callers outside the store should go through events.
func NewNode(id NodeID, label string, nodeType NodeType, row, col int) *Node {
	n := &Node{
		id:       id,
		nodeType: nodeType,
		label:    NewSignal(label),
		row:      NewSignal(row),
		col:      NewSignal(col),
	}
	n.pos = NewMemo(func() Pos {
		return NodePos(n.row.Get(), n.col.Get())
	}, n.row, n.col)
	return n
}

func (n *Node) ID() NodeID        { return n.id }
func (n *Node) Type() NodeType    { return n.nodeType }
func (n *Node) Label() string     { return n.label.Get() }
func (n *Node) Row() int          { return n.row.Get() }
func (n *Node) Col() int          { return n.col.Get() }
func (n *Node) Position() Pos     { return n.pos.Get() }
func (n *Node) Transform() string { return n.pos.Get().Transform() }

// MoveTo updates the grid cell. The transform follows on the next read.
func (n *Node) MoveTo(row, col int) bool {
	r := n.row.Set(row)
	c := n.col.Set(col)
	return r || c
}

func (n *Node) SetLabel(label string) bool {
	return n.label.Set(label)
}

// TransformEvaluations reports how often the position has been recomputed.
func (n *Node) TransformEvaluations() int {
	return n.pos.Evaluations()
}

// SelectedNode is a cursor's view of a node it has selected.
// It carries its own id so the overlay can be keyed independently from the
// node itself, and mirrors the live position of its source.
type SelectedNode struct {
	id     SelectionID
	source *Node
}

func (s SelectedNode) ID() SelectionID   { return s.id }
func (s SelectedNode) SourceID() NodeID  { return s.source.id }
func (s SelectedNode) Position() Pos     { return s.source.Position() }
func (s SelectedNode) Transform() string { return s.source.Transform() }

// Cursor is a selection actor occupying a whole swimlane cell.
type Cursor struct {
	id CursorID

	label           *Signal[string]
	row             *Signal[int]
	col             *Signal[int]
	pos             *Memo[Pos]
	selectionOffset *Signal[Pos]

	mu       sync.RWMutex
	selected []SelectedNode
}

// NewCursor builds a cursor with an empty selection.
func NewCursor(id CursorID, label string, row, col int) *Cursor {
	c := &Cursor{
		id:              id,
		label:           NewSignal(label),
		row:             NewSignal(row),
		col:             NewSignal(col),
		selectionOffset: NewSignal(Pos{}),
	}
	c.pos = NewMemo(func() Pos {
		return CellPos(c.row.Get(), c.col.Get())
	}, c.row, c.col)
	return c
}

func (c *Cursor) ID() CursorID      { return c.id }
func (c *Cursor) Label() string     { return c.label.Get() }
func (c *Cursor) Row() int          { return c.row.Get() }
func (c *Cursor) Col() int          { return c.col.Get() }
func (c *Cursor) Position() Pos     { return c.pos.Get() }
func (c *Cursor) Top() int          { return c.pos.Get().Y }
func (c *Cursor) Left() int         { return c.pos.Get().X }
func (c *Cursor) Transform() string { return c.pos.Get().Transform() }

// SelectionOffset positions the selection overlay group. It stays at the
// origin for now.
func (c *Cursor) SelectionOffset() Pos { return c.selectionOffset.Get() }

func (c *Cursor) SelectionTransform() string {
	return c.selectionOffset.Get().Transform()
}

func (c *Cursor) MoveTo(row, col int) bool {
	r := c.row.Set(row)
	cl := c.col.Set(col)
	return r || cl
}

func (c *Cursor) SetLabel(label string) bool {
	return c.label.Set(label)
}

// SelectedNodes returns the selection in the order it was made.
func (c *Cursor) SelectedNodes() []SelectedNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SelectedNode, len(c.selected))
	copy(out, c.selected)
	return out
}

// Selects reports whether any selection entry projects the node.
func (c *Cursor) Selects(id NodeID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.selected {
		if s.source.id == id {
			return true
		}
	}
	return false
}

// Select appends a projection of n. Selecting the same node twice yields two
// entries.
func (c *Cursor) Select(n *Node) SelectedNode {
	sn := SelectedNode{id: NewSelectionID(), source: n}
	c.mu.Lock()
	c.selected = append(c.selected, sn)
	c.mu.Unlock()
	return sn
}

// Deselect drops every entry projecting the node and returns how many went.
func (c *Cursor) Deselect(id NodeID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.selected[:0]
	for _, s := range c.selected {
		if s.source.id != id {
			kept = append(kept, s)
		}
	}
	removed := len(c.selected) - len(kept)
	// clear the tail so dropped nodes are not retained
	for i := len(kept); i < len(c.selected); i++ {
		c.selected[i] = SelectedNode{}
	}
	c.selected = kept
	return removed
}
