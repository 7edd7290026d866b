/*
Package domain contains the core model of an event-modeling canvas.

Typed nodes (Role, Command, Event, View) sit in swimlane cells addressed by
row and column. Cursors select nodes; each selection is a SelectedNode
projection keyed independently of the node it mirrors. Every on-screen
position is derived from grid coordinates through the geometry functions and
is recomputed lazily when the coordinates change (see Signal and Memo).

This package is kept pure and free of I/O. Mutations arrive as Events and are
applied by the store package, which owns the registries.

# Key Entities

  - Node: a typed box with a label and a derived transform.
  - Cursor: a selection actor with its own cell and an ordered selection.
  - SelectedNode: a cursor's projection of a node.
  - Event: the closed vocabulary of legal mutations (CursorCreated, NodeCreated,
    NodeSelected, NodeDeselected, NodeMoved, CursorMoved).
  - Snapshot: an immutable read of a whole board, with Diff for partial updates.
*/
package domain
