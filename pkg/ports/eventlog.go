package ports

import (
	"context"
	"time"

	"github.com/aretw0/swimlane/pkg/domain"
)

// Record is one entry of a board's event log.
type Record struct {
	// Seq is the 1-based position of the event in its board's log.
	Seq   uint64
	At    time.Time
	Event domain.Event
}

// EventLog is the append-only ordering point for board events.
// Each board has exactly one log, and appends to it are totally ordered.
type EventLog interface {
	// Append records an event that has already been accepted by the board's
	// store and returns its sequence number.
	Append(ctx context.Context, boardID string, e domain.Event) (uint64, error)

	// Load returns the board's records in append order.
	// Returns domain.ErrBoardNotFound if nothing was ever appended.
	Load(ctx context.Context, boardID string) ([]Record, error)

	// LoadSince returns the records appended after seq, in append order.
	// An up-to-date reader gets an empty slice.
	// Returns domain.ErrBoardNotFound if the board has no log, and
	// domain.ErrLogTruncated if the log holds fewer than seq records.
	LoadSince(ctx context.Context, boardID string, seq uint64) ([]Record, error)

	// Delete removes the board's log.
	Delete(ctx context.Context, boardID string) error

	// List returns the ids of boards that have a log.
	List(ctx context.Context) ([]string, error)
}
