package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/swimlane/internal/testutils"
	"github.com/aretw0/swimlane/pkg/adapters/memory"
	"github.com/aretw0/swimlane/pkg/adapters/redis"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowLog simulates latency to provoke race conditions if locking is missing.
type SlowLog struct {
	*memory.Log
}

func (s SlowLog) Append(ctx context.Context, boardID string, e domain.Event) (uint64, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	return s.Log.Append(ctx, boardID, e)
}

// FlakyLog fails appends while broken is set.
type FlakyLog struct {
	*memory.Log
	mu     sync.Mutex
	broken bool
}

func (f *FlakyLog) Append(ctx context.Context, boardID string, e domain.Event) (uint64, error) {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return 0, errors.New("disk full")
	}
	return f.Log.Append(ctx, boardID, e)
}

func (f *FlakyLog) setBroken(b bool) {
	f.mu.Lock()
	f.broken = b
	f.mu.Unlock()
}

func seedEvents() (domain.NodeID, domain.CursorID, []domain.Event) {
	n := domain.NewNodeID()
	c := domain.NewCursorID()
	return n, c, []domain.Event{
		domain.NodeCreated{ID: n, Label: "Some Node", NodeType: domain.NodeTypeCommand, Row: 0, Col: 1},
		domain.CursorCreated{ID: c, Label: "me"},
	}
}

func TestManager_UnknownBoardIsNotOpened(t *testing.T) {
	var opened int
	log := memory.NewLog()
	manager := session.NewManager(log, session.WithHooks(session.Hooks{
		OnOpened: func(string) { opened++ },
	}))
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := manager.Snapshot(ctx, fmt.Sprintf("missing-%d", i))
		require.ErrorIs(t, err, domain.ErrBoardNotFound)
	}
	_, err := manager.Open(ctx, "missing-0")
	assert.ErrorIs(t, err, domain.ErrBoardNotFound)

	assert.Equal(t, 0, manager.OpenBoards(), "reads never cache empty boards")
	assert.Equal(t, 0, opened)
	boards, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, boards)

	// The first write creates the board.
	_, _, events := seedEvents()
	_, err = manager.Apply(ctx, "fresh", events[0])
	require.NoError(t, err)
	assert.Equal(t, 1, opened)

	wf, err := manager.Open(ctx, "fresh")
	require.NoError(t, err)
	again, err := manager.Open(ctx, "fresh")
	require.NoError(t, err)
	assert.Same(t, wf, again, "open boards are cached")
	assert.Equal(t, 1, manager.OpenBoards())
}

func TestManager_ApplyAppendsInOrder(t *testing.T) {
	log := memory.NewLog()
	manager := session.NewManager(log)
	ctx := context.Background()
	_, _, events := seedEvents()

	for i, e := range events {
		seq, err := manager.Apply(ctx, "b", e)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), seq)
	}

	records, err := log.Load(ctx, "b")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, events[0], records[0].Event)
}

func TestManager_RejectedEventIsNotLogged(t *testing.T) {
	log := memory.NewLog()
	manager := session.NewManager(log)
	ctx := context.Background()

	_, err := manager.Apply(ctx, "b", domain.NodeSelected{CursorID: domain.NewCursorID(), NodeID: domain.NewNodeID()})
	assert.ErrorIs(t, err, domain.ErrUnknownCursor)

	_, err = log.Load(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrBoardNotFound)
	assert.Equal(t, 0, manager.OpenBoards(), "a rejected first event does not create the board")
	_, err = manager.Snapshot(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrBoardNotFound)
}

func TestManager_RehydratesFromLog(t *testing.T) {
	log := memory.NewLog()
	ctx := context.Background()
	n, c, events := seedEvents()

	first := session.NewManager(log)
	for _, e := range events {
		_, err := first.Apply(ctx, "b", e)
		require.NoError(t, err)
	}
	_, err := first.Apply(ctx, "b", domain.NodeSelected{CursorID: c, NodeID: n})
	require.NoError(t, err)

	second := session.NewManager(log)
	snap, err := second.Snapshot(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Version)
	require.Len(t, snap.Cursors, 1)
	require.Len(t, snap.Cursors[0].Selection, 1)
	assert.Equal(t, n, snap.Cursors[0].Selection[0].SourceID)

	// Appends continue the existing sequence.
	seq, err := second.Apply(ctx, "b", domain.NodeMoved{NodeID: n, Row: 1, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)
}

func TestManager_AppendFailureEvictsBoard(t *testing.T) {
	log := &FlakyLog{Log: memory.NewLog()}
	manager := session.NewManager(log)
	ctx := context.Background()
	n, c, events := seedEvents()
	for _, e := range events {
		_, err := manager.Apply(ctx, "b", e)
		require.NoError(t, err)
	}

	log.setBroken(true)
	_, err := manager.Apply(ctx, "b", domain.NodeSelected{CursorID: c, NodeID: n})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 0, manager.OpenBoards())

	log.setBroken(false)
	snap, err := manager.Snapshot(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, snap.Cursors[0].Selection, "the unlogged selection must not survive")
	assert.Equal(t, uint64(2), snap.Version)
}

func TestManager_Toggle(t *testing.T) {
	manager := session.NewManager(memory.NewLog())
	ctx := context.Background()
	n, c, events := seedEvents()
	for _, e := range events {
		_, err := manager.Apply(ctx, "b", e)
		require.NoError(t, err)
	}

	e, seq, err := manager.Toggle(ctx, "b", c, n)
	require.NoError(t, err)
	assert.Equal(t, domain.EventNodeSelected, e.Type())
	assert.Equal(t, uint64(3), seq)

	e, _, err = manager.Toggle(ctx, "b", c, n)
	require.NoError(t, err)
	assert.Equal(t, domain.EventNodeDeselected, e.Type())

	_, _, err = manager.Toggle(ctx, "b", domain.NewCursorID(), n)
	assert.ErrorIs(t, err, domain.ErrUnknownCursor)
}

func TestManager_Hooks(t *testing.T) {
	var (
		mu       sync.Mutex
		applied  []session.Applied
		rejected []session.Rejected
		opened   []string
		closed   []string
	)
	hooks := session.Hooks{
		OnApplied:  func(a session.Applied) { mu.Lock(); applied = append(applied, a); mu.Unlock() },
		OnRejected: func(r session.Rejected) { mu.Lock(); rejected = append(rejected, r); mu.Unlock() },
		OnOpened:   func(b string) { mu.Lock(); opened = append(opened, b); mu.Unlock() },
		OnClosed:   func(b string) { mu.Lock(); closed = append(closed, b); mu.Unlock() },
	}
	var second int
	manager := session.NewManager(memory.NewLog(),
		session.WithHooks(hooks),
		session.WithHooks(session.Hooks{OnApplied: func(session.Applied) { second++ }}),
	)
	ctx := context.Background()
	_, _, events := seedEvents()

	_, err := manager.Apply(ctx, "b", events[0])
	require.NoError(t, err)
	_, err = manager.Apply(ctx, "b", events[0])
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	require.NoError(t, manager.Close(ctx, "b"))

	require.Len(t, applied, 1)
	assert.Equal(t, "b", applied[0].Board)
	assert.Equal(t, uint64(1), applied[0].Seq)
	assert.Len(t, applied[0].Snapshot.Nodes, 1)
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0].Err, domain.ErrDuplicateID)
	assert.Equal(t, []string{"b"}, opened)
	assert.Equal(t, []string{"b"}, closed)
	assert.Equal(t, 1, second)
}

func TestManager_Delete(t *testing.T) {
	log := memory.NewLog()
	manager := session.NewManager(log)
	ctx := context.Background()
	_, _, events := seedEvents()
	_, err := manager.Apply(ctx, "b", events[0])
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, "b"))
	assert.Equal(t, 0, manager.OpenBoards())
	boards, err := manager.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, boards, "b")
}

func TestManager_Locking(t *testing.T) {
	log := SlowLog{memory.NewLog()}
	manager := session.NewManager(log)
	ctx := context.Background()
	n, c, events := seedEvents()
	for _, e := range events {
		_, err := manager.Apply(ctx, "race", e)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	concurrentWrites := 20
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Apply(ctx, "race", domain.NodeSelected{CursorID: c, NodeID: n})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := log.Load(ctx, "race")
	require.NoError(t, err)
	require.Len(t, records, 2+concurrentWrites)
	for i, r := range records {
		assert.Equal(t, uint64(i+1), r.Seq)
	}

	wf, err := manager.Open(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(records)), wf.Version(), "store and log agree")
}

func TestManager_DistributedLock(t *testing.T) {
	mr, client := testutils.NewRedis(t)
	log := redis.NewFromClient(client, redis.WithPrefix("test:"))
	locker := redis.NewLocker(client, "test:")

	ctx := context.Background()
	replicaA := session.NewManager(log, session.WithLocker(locker), session.WithLockTTL(time.Second))
	replicaB := session.NewManager(log, session.WithLocker(locker), session.WithLockTTL(time.Second))

	n, c, events := seedEvents()
	for _, e := range events {
		_, err := replicaA.Apply(ctx, "shared", e)
		require.NoError(t, err)
	}

	// B rehydrates what A wrote.
	seq, err := replicaB.Apply(ctx, "shared", domain.NodeSelected{CursorID: c, NodeID: n})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)
	assert.False(t, mr.Exists("test:lock:shared"), "lock is released after apply")

	// A's cache is behind; it catches up before applying.
	seq, err = replicaA.Apply(ctx, "shared", domain.NodeMoved{NodeID: n, Row: 2, Col: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)
	assert.Equal(t, 1, replicaA.OpenBoards())

	snap, err := replicaA.Snapshot(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, snap.Cursors[0].Selection, 1)
	assert.Equal(t, 2, snap.Nodes[0].Row)
}

// InterleavingLog appends a pending foreign event right before the next
// append it is asked for, as a writer that bypasses the board lock would.
type InterleavingLog struct {
	*memory.Log
	mu      sync.Mutex
	pending domain.Event
}

func (l *InterleavingLog) interleave(e domain.Event) {
	l.mu.Lock()
	l.pending = e
	l.mu.Unlock()
}

func (l *InterleavingLog) Append(ctx context.Context, boardID string, e domain.Event) (uint64, error) {
	l.mu.Lock()
	foreign := l.pending
	l.pending = nil
	l.mu.Unlock()
	if foreign != nil {
		if _, err := l.Log.Append(ctx, boardID, foreign); err != nil {
			return 0, err
		}
	}
	return l.Log.Append(ctx, boardID, e)
}

func TestManager_ReplicasCatchUp(t *testing.T) {
	log := memory.NewLog()
	replicaA := session.NewManager(log)
	replicaB := session.NewManager(log)
	ctx := context.Background()
	n, c, events := seedEvents()

	_, err := replicaA.Apply(ctx, "board", events[0])
	require.NoError(t, err)

	// B writes while A holds a cached copy.
	_, err = replicaB.Apply(ctx, "board", events[1])
	require.NoError(t, err)

	snap, err := replicaA.Snapshot(ctx, "board")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version, "reads see the other replica's writes")
	require.Len(t, snap.Cursors, 1)

	// A reusing the id B created is rejected and never logged.
	_, err = replicaA.Apply(ctx, "board", domain.CursorCreated{ID: c, Label: "again"})
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	_, err = replicaA.Apply(ctx, "board", domain.NodeSelected{CursorID: c, NodeID: n})
	require.NoError(t, err)

	records, err := log.Load(ctx, "board")
	require.NoError(t, err)
	assert.Len(t, records, 3)

	fresh := session.NewManager(log)
	snap, err = fresh.Snapshot(ctx, "board")
	require.NoError(t, err, "the log still replays")
	assert.Equal(t, uint64(3), snap.Version)
	assert.Len(t, snap.Cursors[0].Selection, 1)
}

func TestManager_DivergedAppendEvictsBoard(t *testing.T) {
	n, c, events := seedEvents()
	log := &InterleavingLog{Log: memory.NewLog()}
	var closed int
	manager := session.NewManager(log, session.WithHooks(session.Hooks{
		OnClosed: func(string) { closed++ },
	}))
	ctx := context.Background()

	_, err := manager.Apply(ctx, "b", events[0])
	require.NoError(t, err)
	require.Equal(t, 1, manager.OpenBoards())

	// The cursor lands in the log behind the manager's back.
	log.interleave(events[1])
	seq, err := manager.Apply(ctx, "b", domain.NodeMoved{NodeID: n, Row: 1, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)
	assert.Equal(t, 0, manager.OpenBoards(), "the skipped record drops the cache")
	assert.Equal(t, 1, closed)

	snap, err := manager.Snapshot(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Version)
	require.Len(t, snap.Cursors, 1, "the replay includes the foreign event")
	assert.Equal(t, 1, snap.Nodes[0].Row)

	_, err = manager.Apply(ctx, "b", domain.NodeSelected{CursorID: c, NodeID: n})
	require.NoError(t, err)
}

func TestManager_LogDeletedUnderCache(t *testing.T) {
	log := memory.NewLog()
	var closed []string
	manager := session.NewManager(log, session.WithHooks(session.Hooks{
		OnClosed: func(b string) { closed = append(closed, b) },
	}))
	ctx := context.Background()
	_, _, events := seedEvents()
	for _, e := range events {
		_, err := manager.Apply(ctx, "b", e)
		require.NoError(t, err)
	}

	require.NoError(t, log.Delete(ctx, "b"))

	_, err := manager.Snapshot(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrBoardNotFound)
	assert.Equal(t, 0, manager.OpenBoards())
	assert.Equal(t, []string{"b"}, closed)

	// A log shorter than the cache is replayed from scratch.
	for _, e := range events {
		_, err := manager.Apply(ctx, "b", e)
		require.NoError(t, err)
	}
	require.NoError(t, log.Delete(ctx, "b"))
	_, err = log.Append(ctx, "b", events[1])
	require.NoError(t, err)

	snap, err := manager.Snapshot(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Empty(t, snap.Nodes)
	assert.Len(t, snap.Cursors, 1)
	assert.Equal(t, []string{"b", "b"}, closed)
}
