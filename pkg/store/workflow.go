package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/domain"
)

// Hooks are called after an event has been applied or rejected.
// They run outside the store lock.
type Hooks struct {
	OnApplied  func(e domain.Event, version uint64)
	OnRejected func(e domain.Event, err error)
}

// Workflow owns the node and cursor registries of one board and is their only writer.
// Apply is serialized; reads may run concurrently with each other.
type Workflow struct {
	mu sync.RWMutex

	nodes       map[domain.NodeID]*domain.Node
	nodeOrder   []*domain.Node
	cursors     map[domain.CursorID]*domain.Cursor
	cursorOrder []*domain.Cursor
	version     uint64

	logger *slog.Logger
	hooks  Hooks
}

// Option configures the Workflow.
type Option func(*Workflow)

// WithLogger configures a logger for the Workflow.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithHooks registers callbacks for applied and rejected events.
func WithHooks(hooks Hooks) Option {
	return func(w *Workflow) {
		w.hooks = hooks
	}
}

// New creates an empty Workflow.
func New(opts ...Option) *Workflow {
	w := &Workflow{
		nodes:   make(map[domain.NodeID]*domain.Node),
		cursors: make(map[domain.CursorID]*domain.Cursor),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Apply evolves the registries by one event. A rejected event leaves the
// store untouched and returns an error matching one of the domain sentinels.
func (w *Workflow) Apply(e domain.Event) error {
	w.mu.Lock()
	err := w.evolve(e)
	if err == nil {
		w.version++
	}
	version := w.version
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("Event rejected", "type", eventType(e), "err", err)
		if w.hooks.OnRejected != nil {
			w.hooks.OnRejected(e, err)
		}
		return err
	}

	w.logger.Debug("Event applied", "type", e.Type(), "version", version)
	if w.hooks.OnApplied != nil {
		w.hooks.OnApplied(e, version)
	}
	return nil
}

// Replay applies events in order and stops at the first rejection.
func (w *Workflow) Replay(events ...domain.Event) error {
	for i, e := range events {
		if err := w.Apply(e); err != nil {
			return fmt.Errorf("replay stopped at event %d: %w", i, err)
		}
	}
	return nil
}

func (w *Workflow) evolve(e domain.Event) error {
	switch ev := e.(type) {
	case domain.CursorCreated:
		if _, exists := w.cursors[ev.ID]; exists {
			return fmt.Errorf("%w: cursor %s", domain.ErrDuplicateID, ev.ID)
		}
		c := domain.NewCursor(ev.ID, ev.Label, ev.Row, ev.Col)
		w.cursors[ev.ID] = c
		w.cursorOrder = append(w.cursorOrder, c)

	case domain.NodeCreated:
		if _, exists := w.nodes[ev.ID]; exists {
			return fmt.Errorf("%w: node %s", domain.ErrDuplicateID, ev.ID)
		}
		if !ev.NodeType.Valid() {
			return fmt.Errorf("%w: %d", domain.ErrUnknownNodeType, int(ev.NodeType))
		}
		n := domain.NewNode(ev.ID, ev.Label, ev.NodeType, ev.Row, ev.Col)
		w.nodes[ev.ID] = n
		w.nodeOrder = append(w.nodeOrder, n)

	case domain.NodeSelected:
		c, err := w.cursor(ev.CursorID)
		if err != nil {
			return err
		}
		n, err := w.node(ev.NodeID)
		if err != nil {
			return err
		}
		c.Select(n)

	case domain.NodeDeselected:
		c, err := w.cursor(ev.CursorID)
		if err != nil {
			return err
		}
		c.Deselect(ev.NodeID)

	case domain.NodeMoved:
		n, err := w.node(ev.NodeID)
		if err != nil {
			return err
		}
		n.MoveTo(ev.Row, ev.Col)

	case domain.CursorMoved:
		c, err := w.cursor(ev.CursorID)
		if err != nil {
			return err
		}
		c.MoveTo(ev.Row, ev.Col)

	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownEventType, e)
	}
	return nil
}

func (w *Workflow) node(id domain.NodeID) (*domain.Node, error) {
	n, ok := w.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNode, id)
	}
	return n, nil
}

func (w *Workflow) cursor(id domain.CursorID) (*domain.Cursor, error) {
	c, ok := w.cursors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCursor, id)
	}
	return c, nil
}

// ToggleEvent returns the event that flips the selection of node by cursor:
// NodeDeselected when the cursor already selects it, NodeSelected otherwise.
// It does not apply anything.
func (w *Workflow) ToggleEvent(cursorID domain.CursorID, nodeID domain.NodeID) (domain.Event, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	c, err := w.cursor(cursorID)
	if err != nil {
		return nil, err
	}
	if c.Selects(nodeID) {
		return domain.NodeDeselected{CursorID: cursorID, NodeID: nodeID}, nil
	}
	if _, err := w.node(nodeID); err != nil {
		return nil, err
	}
	return domain.NodeSelected{CursorID: cursorID, NodeID: nodeID}, nil
}

// Node looks up a node by id.
func (w *Workflow) Node(id domain.NodeID) (*domain.Node, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.node(id)
}

// Cursor looks up a cursor by id.
func (w *Workflow) Cursor(id domain.CursorID) (*domain.Cursor, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cursor(id)
}

// Nodes returns every node in creation order.
func (w *Workflow) Nodes() []*domain.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*domain.Node, len(w.nodeOrder))
	copy(out, w.nodeOrder)
	return out
}

// Cursors returns every cursor in creation order.
func (w *Workflow) Cursors() []*domain.Cursor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*domain.Cursor, len(w.cursorOrder))
	copy(out, w.cursorOrder)
	return out
}

// Version counts the events applied so far.
func (w *Workflow) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// Snapshot reads the whole board at its current version.
func (w *Workflow) Snapshot() domain.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := domain.Snapshot{
		Version: w.version,
		Nodes:   make([]domain.NodeView, len(w.nodeOrder)),
		Cursors: make([]domain.CursorView, len(w.cursorOrder)),
	}
	for i, n := range w.nodeOrder {
		snap.Nodes[i] = domain.ViewNode(n)
	}
	for i, c := range w.cursorOrder {
		snap.Cursors[i] = domain.ViewCursor(c)
	}
	return snap
}

func eventType(e domain.Event) string {
	if e == nil {
		return "<nil>"
	}
	return string(e.Type())
}
