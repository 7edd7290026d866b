package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/session"
)

// StreamManager handles active SSE connections and turns board snapshots
// into diffs for them.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // BoardID -> Set of Channels

	lastMu sync.Mutex
	last   map[string]*domain.Snapshot // BoardID -> last published snapshot

	logger *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger is replaced
// by a no-op one.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		last:        make(map[string]*domain.Snapshot),
		logger:      logger,
	}
}

// Hooks publishes every applied event's snapshot. Register it on the
// session.Manager that serves the boards.
func (sm *StreamManager) Hooks() session.Hooks {
	return session.Hooks{
		OnApplied: func(a session.Applied) {
			sm.Publish(a.Board, a.Snapshot)
		},
		OnClosed: func(board string) {
			sm.lastMu.Lock()
			delete(sm.last, board)
			sm.lastMu.Unlock()
		},
	}
}

// Publish diffs snap against the last snapshot seen for the board and
// broadcasts the result. Snapshots older than the last one are ignored.
func (sm *StreamManager) Publish(boardID string, snap domain.Snapshot) {
	sm.lastMu.Lock()
	prev := sm.last[boardID]
	if prev != nil && snap.Version <= prev.Version {
		sm.lastMu.Unlock()
		return
	}
	sm.last[boardID] = &snap
	sm.lastMu.Unlock()

	diff := domain.Diff(prev, &snap)
	if diff == nil {
		sm.logger.Debug("StreamManager: No diff calculated", "board", boardID)
		return
	}
	bytes, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("StreamManager: diff encode failed", "board", boardID, "err", err)
		return
	}
	sm.Broadcast(boardID, string(bytes))
}

// Subscribe opens a stream for the board. The channel is closed by the
// returned cancel func, or by Broadcast when the subscriber falls so far
// behind that its buffer fills: diffs are partial, so a subscriber that
// missed one must reload the snapshot.
func (sm *StreamManager) Subscribe(boardID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[boardID]; !ok {
		sm.subscribers[boardID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[boardID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		sm.drop(boardID, ch)
	}
}

// drop must be called with mu held. Channels already dropped are ignored.
func (sm *StreamManager) drop(boardID string, ch chan<- string) {
	subs, ok := sm.subscribers[boardID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(sm.subscribers, boardID)
	}
}

// Subscribers counts the open streams of a board.
func (sm *StreamManager) Subscribers(boardID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[boardID])
}

func (sm *StreamManager) Broadcast(boardID string, msg string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.logger.Debug("StreamManager: Broadcasting", "board", boardID, "payload_size", len(msg))

	for ch := range sm.subscribers[boardID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping subscriber", "board", boardID)
			sm.drop(boardID, ch)
		}
	}
}
