package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEventLogContract runs a suite of tests to verify that an EventLog implementation
// adheres to the defined interface contract.
func RunEventLogContract(t *testing.T, log EventLog) {
	ctx := context.Background()
	boardID := "contract-test-board-" + time.Now().Format("20060102150405.000000")

	nodeID := domain.NewNodeID()
	cursorID := domain.NewCursorID()
	events := []domain.Event{
		domain.NodeCreated{ID: nodeID, Label: "Some Node", NodeType: domain.NodeTypeCommand, Row: 0, Col: 1},
		domain.CursorCreated{ID: cursorID, Label: "me"},
		domain.NodeSelected{CursorID: cursorID, NodeID: nodeID},
	}

	t.Run("Append and Load", func(t *testing.T) {
		for i, e := range events {
			seq, err := log.Append(ctx, boardID, e)
			require.NoError(t, err, "Append should not return error")
			assert.Equal(t, uint64(i+1), seq, "sequence numbers start at 1 and are dense")
		}

		records, err := log.Load(ctx, boardID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, records, len(events))
		for i, r := range records {
			assert.Equal(t, uint64(i+1), r.Seq)
			assert.Equal(t, events[i], r.Event, "events come back typed and in order")
			assert.False(t, r.At.IsZero())
		}
	})

	t.Run("LoadSince", func(t *testing.T) {
		records, err := log.LoadSince(ctx, boardID, 1)
		require.NoError(t, err)
		require.Len(t, records, len(events)-1)
		assert.Equal(t, uint64(2), records[0].Seq, "records keep their log position")
		assert.Equal(t, events[1], records[0].Event)

		records, err = log.LoadSince(ctx, boardID, uint64(len(events)))
		require.NoError(t, err)
		assert.Empty(t, records, "an up-to-date reader gets nothing")

		_, err = log.LoadSince(ctx, boardID, uint64(len(events)+1))
		assert.ErrorIs(t, err, domain.ErrLogTruncated)

		_, err = log.LoadSince(ctx, "non-existent-"+boardID, 0)
		assert.ErrorIs(t, err, domain.ErrBoardNotFound)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := log.Load(ctx, "non-existent-"+boardID)
		assert.ErrorIs(t, err, domain.ErrBoardNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := boardID + "-2"
		_, err := log.Append(ctx, other, domain.CursorCreated{ID: domain.NewCursorID()})
		require.NoError(t, err)
		defer func() { _ = log.Delete(ctx, other) }()

		boards, err := log.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, boards, boardID)
		assert.Contains(t, boards, other)
	})

	t.Run("Delete", func(t *testing.T) {
		err := log.Delete(ctx, boardID)
		require.NoError(t, err, "Delete should not return error")

		_, err = log.Load(ctx, boardID)
		assert.ErrorIs(t, err, domain.ErrBoardNotFound, "Load after Delete should return ErrBoardNotFound")

		seq, err := log.Append(ctx, boardID, events[0])
		require.NoError(t, err)
		assert.Equal(t, uint64(1), seq, "a deleted board starts over")
		_ = log.Delete(ctx, boardID)
	})
}
