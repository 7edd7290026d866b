package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeID identifies a node on the canvas.
// It is a distinct type from CursorID so the two can never be swapped by accident.
type NodeID struct{ u uuid.UUID }

// CursorID identifies a cursor. Cursors will eventually belong to different
// users working on the same model, so the id has to be unique across the network.
type CursorID struct{ u uuid.UUID }

// SelectionID identifies a SelectedNode projection.
// It is never equal to the NodeID of the node being projected.
type SelectionID struct{ u uuid.UUID }

// NewNodeID returns a fresh random NodeID.
func NewNodeID() NodeID { return NodeID{uuid.New()} }

// NewCursorID returns a fresh random CursorID.
func NewCursorID() CursorID { return CursorID{uuid.New()} }

// NewSelectionID returns a fresh random SelectionID.
func NewSelectionID() SelectionID { return SelectionID{uuid.New()} }

// NodeIDFromUUID wraps an existing UUID.
func NodeIDFromUUID(u uuid.UUID) NodeID { return NodeID{u} }

// CursorIDFromUUID wraps an existing UUID.
func CursorIDFromUUID(u uuid.UUID) CursorID { return CursorID{u} }

// ParseNodeID parses the canonical text form of a NodeID.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return NodeID{u}, nil
}

// ParseCursorID parses the canonical text form of a CursorID.
func ParseCursorID(s string) (CursorID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CursorID{}, fmt.Errorf("invalid cursor id %q: %w", s, err)
	}
	return CursorID{u}, nil
}

func (id NodeID) UUID() uuid.UUID      { return id.u }
func (id NodeID) String() string       { return id.u.String() }
func (id NodeID) IsZero() bool         { return id.u == uuid.Nil }
func (id CursorID) UUID() uuid.UUID    { return id.u }
func (id CursorID) String() string     { return id.u.String() }
func (id CursorID) IsZero() bool       { return id.u == uuid.Nil }
func (id SelectionID) UUID() uuid.UUID { return id.u }
func (id SelectionID) String() string  { return id.u.String() }

func (id NodeID) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *NodeID) UnmarshalText(b []byte) error {
	parsed, err := ParseNodeID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id CursorID) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *CursorID) UnmarshalText(b []byte) error {
	parsed, err := ParseCursorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id SelectionID) MarshalText() ([]byte, error) { return id.u.MarshalText() }

func (id *SelectionID) UnmarshalText(b []byte) error {
	return id.u.UnmarshalText(b)
}
