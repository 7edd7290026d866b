package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/ports"
	"github.com/aretw0/swimlane/pkg/store"
)

// DefaultLockTTL bounds how long a distributed board lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Applied describes an event accepted by a board and appended to its log.
type Applied struct {
	Board    string
	Event    domain.Event
	Seq      uint64
	Snapshot domain.Snapshot
	Duration time.Duration
}

// Rejected describes an event that did not reach the log.
type Rejected struct {
	Board    string
	Event    domain.Event
	Err      error
	Duration time.Duration
}

// Hooks observe board activity. Every field is optional.
// They are called after the board lock has been released.
type Hooks struct {
	OnApplied  func(Applied)
	OnRejected func(Rejected)
	OnOpened   func(board string)
	OnClosed   func(board string)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// board is a cached, rehydrated Workflow and the log position it reflects.
type board struct {
	wf  *store.Workflow
	seq uint64
}

// Manager orchestrates board access, ensuring that events of one board are
// applied and appended in a single order.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	log ports.EventLog

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	boardsMu sync.RWMutex
	boards   map[string]*board

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   []Hooks
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and the boards it opens.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers observers. It may be given more than once.
func WithHooks(hooks Hooks) Option {
	return func(m *Manager) {
		m.hooks = append(m.hooks, hooks)
	}
}

// NewManager creates a new board Manager backed by the given event log.
func NewManager(log ports.EventLog, opts ...Option) *Manager {
	m := &Manager{
		log:     log,
		locks:   make(map[string]*lockEntry),
		boards:  make(map[string]*board),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(boardID) after unlocking.
func (m *Manager) acquire(boardID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[boardID]
	if !exists {
		entry = &lockEntry{}
		m.locks[boardID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(boardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[boardID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, boardID)
	}
}

// WithLock executes a function while holding the lock for the board.
func (m *Manager) WithLock(ctx context.Context, boardID string, fn func(context.Context) error) error {
	entry := m.acquire(boardID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(boardID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, boardID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"board", boardID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Open returns the board's Workflow, replaying its log the first time and
// catching up with events other writers appended since.
// A board without events is not opened: Open returns domain.ErrBoardNotFound.
func (m *Manager) Open(ctx context.Context, boardID string) (*store.Workflow, error) {
	var (
		b  *board
		tr transition
	)
	err := m.WithLock(ctx, boardID, func(ctx context.Context) error {
		var err error
		b, tr, err = m.open(ctx, boardID, false)
		return err
	})
	m.fireTransition(boardID, tr)
	if err != nil {
		return nil, err
	}
	return b.wf, nil
}

// transition records cache changes made under the lock, so that hooks can
// fire after it is released.
type transition struct {
	evicted bool // stale cache dropped before reopening
	opened  bool
	dropped bool // cache dropped after the append
}

// open must be called under the board lock. It brings a cached board up to
// the head of the log, or replays the log into a new one. A board without
// events is never cached: with create set it is returned empty (seq 0) for
// the caller to cache once its first event is logged; otherwise
// domain.ErrBoardNotFound is returned.
func (m *Manager) open(ctx context.Context, boardID string, create bool) (*board, transition, error) {
	var tr transition

	m.boardsMu.RLock()
	b, ok := m.boards[boardID]
	m.boardsMu.RUnlock()
	if ok {
		err := m.catchUp(ctx, boardID, b)
		switch {
		case err == nil:
			return b, tr, nil
		case errors.Is(err, errReplay):
			// The cache may hold part of the tail; start over from the log.
			m.logger.Warn("Board cache rejected the log tail, replaying", "board", boardID, "err", err)
		case errors.Is(err, domain.ErrBoardNotFound), errors.Is(err, domain.ErrLogTruncated):
			m.logger.Warn("Board log shrank under the cache, replaying", "board", boardID, "err", err)
		default:
			return nil, tr, fmt.Errorf("failed to catch up board %q: %w", boardID, err)
		}
		tr.evicted = m.evict(boardID)
	}

	b = &board{wf: store.New(store.WithLogger(m.logger.With("board", boardID)))}

	records, err := m.log.Load(ctx, boardID)
	switch {
	case errors.Is(err, domain.ErrBoardNotFound):
		if !create {
			return nil, tr, fmt.Errorf("%w: %s", domain.ErrBoardNotFound, boardID)
		}
		return b, tr, nil
	case err != nil:
		return nil, tr, fmt.Errorf("failed to load board %q: %w", boardID, err)
	default:
		if err := m.replay(b, records); err != nil {
			return nil, tr, fmt.Errorf("failed to replay board %q: %w", boardID, err)
		}
		m.logger.Debug("Board rehydrated", "board", boardID, "events", len(records))
	}

	m.cache(boardID, b)
	tr.opened = true
	return b, tr, nil
}

var errReplay = errors.New("log record rejected by board")

// catchUp applies the records appended after the board's position.
func (m *Manager) catchUp(ctx context.Context, boardID string, b *board) error {
	records, err := m.log.LoadSince(ctx, boardID, b.seq)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		m.logger.Debug("Board caught up with log", "board", boardID, "from", b.seq, "events", len(records))
	}
	return m.replay(b, records)
}

func (m *Manager) replay(b *board, records []ports.Record) error {
	for _, r := range records {
		if err := b.wf.Apply(r.Event); err != nil {
			return fmt.Errorf("%w at seq %d: %w", errReplay, r.Seq, err)
		}
		b.seq = r.Seq
	}
	return nil
}

// Apply applies the event to the board and appends it to the log.
// The board is first brought up to the head of the log, so the event is
// checked against every event appended before it.
// If the append fails, the cached board is dropped so the next Open
// replays what the log actually holds.
func (m *Manager) Apply(ctx context.Context, boardID string, e domain.Event) (uint64, error) {
	var seq uint64
	err := m.mutate(ctx, boardID, func(*store.Workflow) (domain.Event, error) {
		return e, nil
	}, &seq)
	return seq, err
}

// Toggle selects the node for the cursor, or deselects it when it is
// already selected. It returns the event that was applied.
func (m *Manager) Toggle(ctx context.Context, boardID string, cursorID domain.CursorID, nodeID domain.NodeID) (domain.Event, uint64, error) {
	var (
		seq     uint64
		applied domain.Event
	)
	err := m.mutate(ctx, boardID, func(wf *store.Workflow) (domain.Event, error) {
		e, err := wf.ToggleEvent(cursorID, nodeID)
		applied = e
		return e, err
	}, &seq)
	return applied, seq, err
}

// mutate runs the read-decide-apply-append cycle under the board lock and
// fires hooks once the lock is released.
func (m *Manager) mutate(ctx context.Context, boardID string, decide func(*store.Workflow) (domain.Event, error), seqOut *uint64) error {
	start := time.Now()
	var (
		e    domain.Event
		snap domain.Snapshot
		tr   transition
	)

	err := m.WithLock(ctx, boardID, func(ctx context.Context) error {
		b, opened, err := m.open(ctx, boardID, true)
		tr = opened
		if err != nil {
			return err
		}
		fresh := b.seq == 0

		e, err = decide(b.wf)
		if err != nil {
			return err
		}
		if err := b.wf.Apply(e); err != nil {
			return err
		}

		seq, err := m.log.Append(ctx, boardID, e)
		if err != nil {
			tr.dropped = m.evict(boardID)
			return fmt.Errorf("failed to append event: %w", err)
		}
		switch {
		case seq != b.seq+1:
			// A writer outside this board lock appended between catch-up and
			// append. The event is logged, but our copy skipped a record.
			m.logger.Warn("Board log diverged from cache", "board", boardID, "expected", b.seq+1, "got", seq)
			tr.dropped = m.evict(boardID)
		case fresh:
			m.cache(boardID, b)
			tr.opened = true
		}
		b.seq = seq
		*seqOut = seq
		snap = b.wf.Snapshot()
		return nil
	})
	m.fireTransition(boardID, tr)

	if err != nil {
		m.fireRejected(Rejected{Board: boardID, Event: e, Err: err, Duration: time.Since(start)})
		return err
	}
	m.fireApplied(Applied{Board: boardID, Event: e, Seq: *seqOut, Snapshot: snap, Duration: time.Since(start)})
	return nil
}

// Snapshot opens the board and reads it.
func (m *Manager) Snapshot(ctx context.Context, boardID string) (domain.Snapshot, error) {
	wf, err := m.Open(ctx, boardID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return wf.Snapshot(), nil
}

// List delegates to the log.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.log.List(ctx)
}

// OpenBoards returns the number of boards held in memory.
func (m *Manager) OpenBoards() int {
	m.boardsMu.RLock()
	defer m.boardsMu.RUnlock()
	return len(m.boards)
}

// Close drops the in-memory board. The log is kept.
func (m *Manager) Close(ctx context.Context, boardID string) error {
	var evicted bool
	err := m.WithLock(ctx, boardID, func(context.Context) error {
		evicted = m.evict(boardID)
		return nil
	})
	if evicted {
		m.fireClosed(boardID)
	}
	return err
}

// Delete drops the board and its log.
func (m *Manager) Delete(ctx context.Context, boardID string) error {
	var evicted bool
	err := m.WithLock(ctx, boardID, func(ctx context.Context) error {
		evicted = m.evict(boardID)
		return m.log.Delete(ctx, boardID)
	})
	if evicted {
		m.fireClosed(boardID)
	}
	return err
}

// Log returns the underlying event log.
func (m *Manager) Log() ports.EventLog {
	return m.log
}

func (m *Manager) cache(boardID string, b *board) {
	m.boardsMu.Lock()
	m.boards[boardID] = b
	m.boardsMu.Unlock()
}

func (m *Manager) evict(boardID string) bool {
	m.boardsMu.Lock()
	defer m.boardsMu.Unlock()
	if _, ok := m.boards[boardID]; !ok {
		return false
	}
	delete(m.boards, boardID)
	return true
}

func (m *Manager) fireTransition(boardID string, tr transition) {
	if tr.evicted {
		m.fireClosed(boardID)
	}
	if tr.opened {
		m.fireOpened(boardID)
	}
	if tr.dropped {
		m.fireClosed(boardID)
	}
}

func (m *Manager) fireApplied(a Applied) {
	for _, h := range m.hooks {
		if h.OnApplied != nil {
			h.OnApplied(a)
		}
	}
}

func (m *Manager) fireRejected(r Rejected) {
	for _, h := range m.hooks {
		if h.OnRejected != nil {
			h.OnRejected(r)
		}
	}
}

func (m *Manager) fireOpened(boardID string) {
	for _, h := range m.hooks {
		if h.OnOpened != nil {
			h.OnOpened(boardID)
		}
	}
}

func (m *Manager) fireClosed(boardID string) {
	for _, h := range m.hooks {
		if h.OnClosed != nil {
			h.OnClosed(boardID)
		}
	}
}
