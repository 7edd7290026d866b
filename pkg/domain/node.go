package domain

import (
	"fmt"
	"strings"
)

// NodeType is the kind of an event-modeling node.
// It only affects presentation; no invariant depends on it.
type NodeType int

const (
	NodeTypeRole NodeType = iota
	NodeTypeCommand
	NodeTypeEvent
	NodeTypeView
)

var nodeTypeNames = [...]string{
	NodeTypeRole:    "Role",
	NodeTypeCommand: "Command",
	NodeTypeEvent:   "Event",
	NodeTypeView:    "View",
}

// NodeTypes lists every node type in declaration order.
func NodeTypes() []NodeType {
	return []NodeType{NodeTypeRole, NodeTypeCommand, NodeTypeEvent, NodeTypeView}
}

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// Valid reports whether t is one of the declared node types.
func (t NodeType) Valid() bool {
	return t >= NodeTypeRole && t <= NodeTypeView
}

// ParseNodeType is case-insensitive.
func ParseNodeType(s string) (NodeType, error) {
	for i, name := range nodeTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return NodeType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNodeType, s)
}

func (t NodeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNodeType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *NodeType) UnmarshalText(b []byte) error {
	parsed, err := ParseNodeType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
