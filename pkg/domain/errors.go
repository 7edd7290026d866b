package domain

import "errors"

// ErrUnknownNode is returned when an event references a node that is not in the registry.
var ErrUnknownNode = errors.New("unknown node")

// ErrUnknownCursor is returned when an event references a cursor that is not in the registry.
var ErrUnknownCursor = errors.New("unknown cursor")

// ErrDuplicateID is returned when a creation event reuses an id already seen by the registry.
var ErrDuplicateID = errors.New("duplicate id")

// ErrUnknownEventType is returned when decoding an event with an unrecognized type tag.
var ErrUnknownEventType = errors.New("unknown event type")

// ErrUnknownNodeType is returned when parsing a node type outside Role/Command/Event/View.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrBoardNotFound is returned when a board has no recorded events.
var ErrBoardNotFound = errors.New("board not found")

// ErrLogTruncated is returned when a board's log holds fewer events than a reader has already seen.
var ErrLogTruncated = errors.New("log truncated")
