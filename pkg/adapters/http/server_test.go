package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/adapters/memory"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	streams := NewStreamManager(nil)
	manager := session.NewManager(memory.NewLog(), session.WithHooks(streams.Hooks()))
	srv := httptest.NewServer(NewHandler(manager, WithStreams(streams)))
	t.Cleanup(srv.Close)
	return srv, manager
}

func postEvent(t *testing.T, base, board string, e domain.Event) *http.Response {
	t.Helper()
	body, err := domain.MarshalEvent(e)
	require.NoError(t, err)
	resp, err := http.Post(base+"/boards/"+board+"/events", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&info))
	assert.Equal(t, "swimlane-http", info["app"])
	assert.NotEmpty(t, info["version"])
}

func TestPostEventAndRead(t *testing.T) {
	srv, _ := newTestServer(t)
	n := domain.NewNodeID()

	resp := postEvent(t, srv.URL, "b1", domain.NodeCreated{ID: n, Label: "Some Node", NodeType: domain.NodeTypeCommand, Row: 0, Col: 1})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]uint64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, uint64(1), created["seq"])

	nodesResp, err := http.Get(srv.URL + "/boards/b1/nodes")
	require.NoError(t, err)
	defer nodesResp.Body.Close()
	var nodes []domain.NodeView
	require.NoError(t, json.NewDecoder(nodesResp.Body).Decode(&nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, n, nodes[0].ID)
	assert.Equal(t, "translate(264,20)", nodes[0].Transform)

	listResp, err := http.Get(srv.URL + "/boards")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var boards []string
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&boards))
	assert.Equal(t, []string{"b1"}, boards)
}

func TestPostEvent_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	n := domain.NewNodeID()
	require.Equal(t, http.StatusCreated, postEvent(t, srv.URL, "b", domain.NodeCreated{ID: n}).StatusCode)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"type":`, http.StatusBadRequest},
		{"unknown type", `{"type":"node_deleted","data":{}}`, http.StatusUnprocessableEntity},
		{"unknown node type", `{"type":"node_created","data":{"id":"` + domain.NewNodeID().String() + `","node_type":"Saga"}}`, http.StatusUnprocessableEntity},
		{"duplicate", `{"type":"node_created","data":{"id":"` + n.String() + `"}}`, http.StatusConflict},
		{"unknown cursor", `{"type":"node_selected","data":{"cursor_id":"` + domain.NewCursorID().String() + `","node_id":"` + n.String() + `"}}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/boards/b/events", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestToggleSelection(t *testing.T) {
	srv, manager := newTestServer(t)
	n := domain.NewNodeID()
	c := domain.NewCursorID()
	postEvent(t, srv.URL, "b", domain.NodeCreated{ID: n, NodeType: domain.NodeTypeView})
	postEvent(t, srv.URL, "b", domain.CursorCreated{ID: c})

	url := fmt.Sprintf("%s/boards/b/cursors/%s/toggle/%s", srv.URL, c, n)
	for _, want := range []domain.EventType{domain.EventNodeSelected, domain.EventNodeDeselected} {
		resp, err := http.Post(url, "", nil)
		require.NoError(t, err)
		var out struct {
			Seq  uint64           `json:"seq"`
			Type domain.EventType `json:"type"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, want, out.Type)
	}

	snap, err := manager.Snapshot(context.Background(), "b")
	require.NoError(t, err)
	assert.Empty(t, snap.Cursors[0].Selection)

	resp, err := http.Post(fmt.Sprintf("%s/boards/b/cursors/not-a-uuid/toggle/%s", srv.URL, n), "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribeBoard(t *testing.T) {
	srv, _ := newTestServer(t)
	n := domain.NewNodeID()
	postEvent(t, srv.URL, "b", domain.NodeCreated{ID: n, Label: "first"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/boards/b/stream?watch=nodes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatal("stream closed")
				}
				if strings.HasPrefix(l, "data: ") {
					return strings.TrimPrefix(l, "data: ")
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for SSE data")
			}
		}
	}

	assert.Equal(t, "connected", next())
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(next()), &snap))
	assert.Equal(t, uint64(1), snap.Version)

	// A cursor-only change is filtered out by watch=nodes; the move is not.
	postEvent(t, srv.URL, "b", domain.CursorCreated{ID: domain.NewCursorID()})
	postEvent(t, srv.URL, "b", domain.NodeMoved{NodeID: n, Row: 1, Col: 2})

	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	assert.Equal(t, uint64(3), diff.Version)
	require.Len(t, diff.Nodes, 1)
	assert.Equal(t, "translate(504,220)", diff.Nodes[0].Transform)
	assert.Empty(t, diff.Cursors)
}

func TestStreamManager_PublishDiffs(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("b")
	defer cancel()
	assert.Equal(t, 1, sm.Subscribers("b"))

	n := domain.NodeView{ID: domain.NewNodeID(), Label: "a"}
	sm.Publish("b", domain.Snapshot{Version: 1, Nodes: []domain.NodeView{n}})
	sm.Publish("b", domain.Snapshot{Version: 1, Nodes: []domain.NodeView{n}}) // stale
	n.Label = "b"
	sm.Publish("b", domain.Snapshot{Version: 2, Nodes: []domain.NodeView{n}})

	first := <-ch
	second := <-ch
	assert.Contains(t, first, `"version":1`)
	assert.Contains(t, second, `"label":"b"`)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected message %s", extra)
	default:
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(domain.ErrBoardNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(fmt.Errorf("boom")))
}

func TestOpenAPIDocument(t *testing.T) {
	_, err := newRequestValidator(logging.NewNop())
	require.NoError(t, err, "the embedded document loads and validates")

	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/yaml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/boards/{board}/events:")
}

func TestRequestValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	valid := `{"type":"cursor_created","data":{"id":"` + domain.NewCursorID().String() + `"}}`

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"missing type", http.MethodPost, "/boards/b/events", "application/json", `{"data":{}}`, http.StatusBadRequest},
		{"data not an object", http.MethodPost, "/boards/b/events", "application/json", `{"type":"cursor_created","data":[]}`, http.StatusBadRequest},
		{"wrong content type", http.MethodPost, "/boards/b/events", "text/plain", valid, http.StatusBadRequest},
		{"reserved board id", http.MethodPost, "/boards/lock:b/events", "application/json", valid, http.StatusBadRequest},
		{"board id too long", http.MethodGet, "/boards/" + strings.Repeat("x", 129), "", "", http.StatusBadRequest},
		{"unknown watch field", http.MethodGet, "/boards/b/stream?watch=edges", "", "", http.StatusBadRequest},
		{"valid", http.MethodPost, "/boards/b/events", "application/json", valid, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGetBoard_NotFound(t *testing.T) {
	srv, manager := newTestServer(t)

	for _, path := range []string{"/boards/missing", "/boards/missing/nodes", "/boards/missing/stream"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	assert.Equal(t, 0, manager.OpenBoards())
}

func TestStreamManager_DropsSlowSubscriber(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("b")

	n := domain.NodeView{ID: domain.NewNodeID()}
	for v := uint64(1); v <= 11; v++ {
		n.Row = int(v)
		sm.Publish("b", domain.Snapshot{Version: v, Nodes: []domain.NodeView{n}})
	}
	assert.Equal(t, 0, sm.Subscribers("b"), "a full buffer drops the subscriber")

	received := 0
	for range ch {
		received++
	}
	assert.Equal(t, 10, received, "buffered diffs are delivered, then the channel closes")

	cancel() // no double close
}
