package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/swimlane/pkg/adapters/memory"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo(t *testing.T) {
	events, err := Demo().Events()
	require.NoError(t, err)
	require.Len(t, events, 3)

	node := events[0].(domain.NodeCreated)
	assert.Equal(t, "Some Node", node.Label)
	assert.Equal(t, domain.NodeTypeCommand, node.NodeType)
	assert.Equal(t, 1, node.Col)
	assert.Equal(t, NodeAlias("some-node"), node.ID)

	sel := events[2].(domain.NodeSelected)
	assert.Equal(t, CursorAlias("me"), sel.CursorID)
	assert.Equal(t, node.ID, sel.NodeID)
}

func TestDemo_Run(t *testing.T) {
	manager := session.NewManager(memory.NewLog())
	n, err := Demo().Run(context.Background(), manager, "demo")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snap, err := manager.Snapshot(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, snap.Cursors, 1)
	require.Len(t, snap.Cursors[0].Selection, 1)
	assert.Equal(t, "translate(264,20)", snap.Cursors[0].Selection[0].Transform)
}

func TestAliases(t *testing.T) {
	assert.Equal(t, NodeAlias("a"), NodeAlias("a"), "aliases are stable")
	assert.NotEqual(t, NodeAlias("a"), NodeAlias("b"))

	id := domain.NewNodeID()
	assert.Equal(t, id, NodeAlias(id.String()), "UUIDs pass through")
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	s, err := Parse([]byte(`
events:
  - type: cursor_created
    data: {id: c}
  - type: node_selected
    data: {cursor_id: c, node_id: ghost}
  - type: node_created
    data: {id: late}
`))
	require.NoError(t, err)

	manager := session.NewManager(memory.NewLog())
	n, err := s.Run(context.Background(), manager, "b")
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
	assert.Contains(t, err.Error(), "step 1")
	assert.Equal(t, 1, n)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  - type: bogus\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Name)
	_, err = s.Events()
	assert.ErrorIs(t, err, domain.ErrUnknownEventType)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
