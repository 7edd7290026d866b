package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/ports"
)

// Log implements ports.EventLog in memory.
// Safe for concurrent use.
type Log struct {
	data map[string][]ports.Record
	mu   sync.RWMutex
	now  func() time.Time
}

// NewLog creates a new in-memory event log.
func NewLog() *Log {
	return &Log{
		data: make(map[string][]ports.Record),
		now:  time.Now,
	}
}

// Append records the event at the end of the board's log.
func (l *Log) Append(ctx context.Context, boardID string, e domain.Event) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.data[boardID]) + 1)
	l.data[boardID] = append(l.data[boardID], ports.Record{
		Seq:   seq,
		At:    l.now(),
		Event: e,
	})
	return seq, nil
}

// Load returns a copy of the board's records.
func (l *Log) Load(ctx context.Context, boardID string) ([]ports.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records, ok := l.data[boardID]
	if !ok || len(records) == 0 {
		return nil, domain.ErrBoardNotFound
	}

	// Events are values, so a shallow copy isolates the caller from later appends.
	ret := make([]ports.Record, len(records))
	copy(ret, records)
	return ret, nil
}

// LoadSince returns a copy of the records after seq.
func (l *Log) LoadSince(ctx context.Context, boardID string, seq uint64) ([]ports.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := l.data[boardID]
	if len(records) == 0 {
		return nil, domain.ErrBoardNotFound
	}
	if uint64(len(records)) < seq {
		return nil, fmt.Errorf("%w: board %q has %d events, reader is at %d", domain.ErrLogTruncated, boardID, len(records), seq)
	}

	ret := make([]ports.Record, len(records)-int(seq))
	copy(ret, records[seq:])
	return ret, nil
}

// Delete removes the board's log.
func (l *Log) Delete(ctx context.Context, boardID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, boardID)
	return nil
}

// List returns boards with a log.
func (l *Log) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	boards := make([]string, 0, len(l.data))
	for id := range l.data {
		boards = append(boards, id)
	}
	return boards, nil
}
