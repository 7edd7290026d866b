package domain

// EventType names an event on the wire.
type EventType string

const (
	EventCursorCreated  EventType = "cursor_created"
	EventNodeCreated    EventType = "node_created"
	EventNodeSelected   EventType = "node_selected"
	EventNodeDeselected EventType = "node_deselected"
	EventNodeMoved      EventType = "node_moved"
	EventCursorMoved    EventType = "cursor_moved"
)

// EventTypes lists every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventCursorCreated,
		EventNodeCreated,
		EventNodeSelected,
		EventNodeDeselected,
		EventNodeMoved,
		EventCursorMoved,
	}
}

// Event is a legal mutation of the canvas. The set of implementations is closed.
type Event interface {
	Type() EventType
	isEvent()
}

type CursorCreated struct {
	ID    CursorID `json:"id" mapstructure:"id"`
	Label string   `json:"label" mapstructure:"label"`
	Row   int      `json:"row" mapstructure:"row"`
	Col   int      `json:"col" mapstructure:"col"`
}

type NodeCreated struct {
	ID       NodeID   `json:"id" mapstructure:"id"`
	Label    string   `json:"label" mapstructure:"label"`
	NodeType NodeType `json:"node_type" mapstructure:"node_type"`
	Row      int      `json:"row" mapstructure:"row"`
	Col      int      `json:"col" mapstructure:"col"`
}

type NodeSelected struct {
	CursorID CursorID `json:"cursor_id" mapstructure:"cursor_id"`
	NodeID   NodeID   `json:"node_id" mapstructure:"node_id"`
}

type NodeDeselected struct {
	CursorID CursorID `json:"cursor_id" mapstructure:"cursor_id"`
	NodeID   NodeID   `json:"node_id" mapstructure:"node_id"`
}

// NodeMoved drags a node to another cell.
type NodeMoved struct {
	NodeID NodeID `json:"node_id" mapstructure:"node_id"`
	Row    int    `json:"row" mapstructure:"row"`
	Col    int    `json:"col" mapstructure:"col"`
}

// CursorMoved moves a cursor to another cell.
type CursorMoved struct {
	CursorID CursorID `json:"cursor_id" mapstructure:"cursor_id"`
	Row      int      `json:"row" mapstructure:"row"`
	Col      int      `json:"col" mapstructure:"col"`
}

func (CursorCreated) Type() EventType  { return EventCursorCreated }
func (NodeCreated) Type() EventType    { return EventNodeCreated }
func (NodeSelected) Type() EventType   { return EventNodeSelected }
func (NodeDeselected) Type() EventType { return EventNodeDeselected }
func (NodeMoved) Type() EventType      { return EventNodeMoved }
func (CursorMoved) Type() EventType    { return EventCursorMoved }

func (CursorCreated) isEvent()  {}
func (NodeCreated) isEvent()    {}
func (NodeSelected) isEvent()   {}
func (NodeDeselected) isEvent() {}
func (NodeMoved) isEvent()      {}
func (CursorMoved) isEvent()    {}
