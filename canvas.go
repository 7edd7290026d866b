package swimlane

import (
	"log/slog"

	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/store"
)

// Canvas is the high-level entry point for embedding a single board.
// It wraps a store.Workflow and builds events for the common operations.
type Canvas struct {
	workflow *store.Workflow
	logger   *slog.Logger
	hooks    store.Hooks
}

// Option defines a functional option for configuring the Canvas.
type Option func(*Canvas)

// WithLogger sets a custom structured logger for the canvas.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Canvas) {
		c.logger = logger
	}
}

// WithHooks registers callbacks for applied and rejected events.
func WithHooks(hooks store.Hooks) Option {
	return func(c *Canvas) {
		c.hooks = hooks
	}
}

// New creates an empty Canvas.
func New(opts ...Option) *Canvas {
	c := &Canvas{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.workflow = store.New(store.WithLogger(c.logger), store.WithHooks(c.hooks))
	return c
}

// Apply evolves the canvas by one event.
func (c *Canvas) Apply(e domain.Event) error {
	return c.workflow.Apply(e)
}

// CreateNode adds a node with a fresh id.
func (c *Canvas) CreateNode(label string, nodeType domain.NodeType, row, col int) (domain.NodeID, error) {
	id := domain.NewNodeID()
	if err := c.Apply(domain.NodeCreated{ID: id, Label: label, NodeType: nodeType, Row: row, Col: col}); err != nil {
		return domain.NodeID{}, err
	}
	return id, nil
}

// CreateCursor adds a cursor with a fresh id.
func (c *Canvas) CreateCursor(label string, row, col int) (domain.CursorID, error) {
	id := domain.NewCursorID()
	if err := c.Apply(domain.CursorCreated{ID: id, Label: label, Row: row, Col: col}); err != nil {
		return domain.CursorID{}, err
	}
	return id, nil
}

// Select adds node to the cursor's selection.
func (c *Canvas) Select(cursor domain.CursorID, node domain.NodeID) error {
	return c.Apply(domain.NodeSelected{CursorID: cursor, NodeID: node})
}

// Deselect removes every selection of node from the cursor.
func (c *Canvas) Deselect(cursor domain.CursorID, node domain.NodeID) error {
	return c.Apply(domain.NodeDeselected{CursorID: cursor, NodeID: node})
}

// ToggleSelection selects node, or deselects it if the cursor already selects it.
func (c *Canvas) ToggleSelection(cursor domain.CursorID, node domain.NodeID) (domain.Event, error) {
	e, err := c.workflow.ToggleEvent(cursor, node)
	if err != nil {
		return nil, err
	}
	return e, c.Apply(e)
}

// Move places a node in another cell.
func (c *Canvas) Move(node domain.NodeID, row, col int) error {
	return c.Apply(domain.NodeMoved{NodeID: node, Row: row, Col: col})
}

// MoveCursor places a cursor in another cell.
func (c *Canvas) MoveCursor(cursor domain.CursorID, row, col int) error {
	return c.Apply(domain.CursorMoved{CursorID: cursor, Row: row, Col: col})
}

// Nodes returns the live nodes in creation order.
func (c *Canvas) Nodes() []*domain.Node {
	return c.workflow.Nodes()
}

// Cursors returns the live cursors in creation order.
func (c *Canvas) Cursors() []*domain.Cursor {
	return c.workflow.Cursors()
}

// Snapshot reads the whole canvas.
func (c *Canvas) Snapshot() domain.Snapshot {
	return c.workflow.Snapshot()
}

// Workflow exposes the underlying store.
func (c *Canvas) Workflow() *store.Workflow {
	return c.workflow
}
