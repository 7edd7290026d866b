package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardMarkdown(t *testing.T) {
	n := domain.NodeView{ID: domain.NewNodeID(), Label: "Some Node", Type: domain.NodeTypeCommand, Row: 0, Col: 1, Transform: "translate(264,20)"}
	snap := domain.Snapshot{
		Version: 3,
		Nodes:   []domain.NodeView{n},
		Cursors: []domain.CursorView{{
			ID:        domain.NewCursorID(),
			Label:     "a|b",
			Transform: "translate(0,0)",
			Selection: []domain.SelectionView{{SourceID: n.ID, Transform: n.Transform}},
		}},
	}

	md := BoardMarkdown("demo", snap)
	assert.Contains(t, md, "# demo")
	assert.Contains(t, md, "Version 3: 1 nodes, 1 cursors.")
	assert.Contains(t, md, "| Some Node | Command | 0 | 1 | `translate(264,20)` |")
	assert.Contains(t, md, "| a\\|b | 0 | 0 | `translate(0,0)` | Some Node |")
}

func TestBoardMarkdown_Empty(t *testing.T) {
	md := BoardMarkdown("empty", domain.Snapshot{})
	assert.NotContains(t, md, "## Nodes")
	assert.NotContains(t, md, "## Cursors")
}

func TestNewRenderer_Plain(t *testing.T) {
	out, err := NewRenderer(false)("# hi\n")
	require.NoError(t, err)
	assert.Equal(t, "# hi\n", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "___")
}
