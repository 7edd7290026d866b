package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/swimlane"
	"github.com/aretw0/swimlane/api"
	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// maxEventBytes bounds POST /boards/{board}/events bodies.
const maxEventBytes = 1 << 20

// Boards is the board access the server needs. *session.Manager satisfies it.
type Boards interface {
	Apply(ctx context.Context, boardID string, e domain.Event) (uint64, error)
	Toggle(ctx context.Context, boardID string, cursorID domain.CursorID, nodeID domain.NodeID) (domain.Event, uint64, error)
	Snapshot(ctx context.Context, boardID string) (domain.Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// Server exposes boards over HTTP and SSE.
type Server struct {
	Boards    Boards
	Streams   *StreamManager
	logger    *slog.Logger
	validator *requestValidator
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager whose Hooks are registered on the
// board manager. Without it, /stream only ever sends the initial snapshot.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// NewServer creates a Server over boards.
func NewServer(boards Boards, opts ...Option) *Server {
	s := &Server{
		Boards: boards,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	validator, err := newRequestValidator(s.logger)
	if err != nil {
		// The document is embedded at build time.
		panic(err)
	}
	s.validator = validator
	return s
}

// NewHandler creates a new HTTP handler for the boards.
func NewHandler(boards Boards, opts ...Option) http.Handler {
	return NewServer(boards, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Route("/boards", func(r chi.Router) {
		r.Get("/", s.ListBoards)
		r.Route("/{board}", func(r chi.Router) {
			r.Use(s.validator.Middleware)
			r.Get("/", s.GetBoard)
			r.Get("/nodes", s.GetNodes)
			r.Get("/cursors", s.GetCursors)
			r.Post("/events", s.PostEvent)
			r.Post("/cursors/{cursor}/toggle/{node}", s.ToggleSelection)
			r.Get("/stream", s.SubscribeBoard)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "swimlane-http",
		"version": swimlane.Version,
	})
}

// GetOpenAPI serves the OpenAPI document requests are validated against.
func (s *Server) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	if _, err := w.Write(api.Document); err != nil {
		s.logger.Error("OpenAPI document write failed", "err", err)
	}
}

// ListBoards handles the GET /boards request.
func (s *Server) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.Boards.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if boards == nil {
		boards = []string{}
	}
	s.writeJSON(w, http.StatusOK, boards)
}

// GetBoard handles the GET /boards/{board} request.
func (s *Server) GetBoard(w http.ResponseWriter, r *http.Request) {
	boardID, ok := s.boardParam(w, r)
	if !ok {
		return
	}
	snap, err := s.Boards.Snapshot(r.Context(), boardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// GetNodes handles the GET /boards/{board}/nodes request.
func (s *Server) GetNodes(w http.ResponseWriter, r *http.Request) {
	boardID, ok := s.boardParam(w, r)
	if !ok {
		return
	}
	snap, err := s.Boards.Snapshot(r.Context(), boardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Nodes)
}

// GetCursors handles the GET /boards/{board}/cursors request.
func (s *Server) GetCursors(w http.ResponseWriter, r *http.Request) {
	boardID, ok := s.boardParam(w, r)
	if !ok {
		return
	}
	snap, err := s.Boards.Snapshot(r.Context(), boardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Cursors)
}

// PostEvent handles the POST /boards/{board}/events request.
// The body is an event envelope: {"type": "...", "data": {...}}.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	boardID, ok := s.boardParam(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid request body: %w", err))
		s.logger.Warn("PostEvent: Invalid request body", "err", err)
		return
	}

	e, err := domain.UnmarshalEvent(body)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) || errors.Is(err, domain.ErrUnknownNodeType) {
			s.writeError(w, err)
			return
		}
		writeBadRequest(w, fmt.Errorf("invalid event: %w", err))
		s.logger.Warn("PostEvent: Invalid event", "err", err)
		return
	}

	seq, err := s.Boards.Apply(r.Context(), boardID, e)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]uint64{"seq": seq})
}

// ToggleSelection handles the POST /boards/{board}/cursors/{cursor}/toggle/{node} request.
func (s *Server) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	boardID, ok := s.boardParam(w, r)
	if !ok {
		return
	}
	rawCursor, err := pathParam(r, "cursor")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	rawNode, err := pathParam(r, "node")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cursorID, err := domain.ParseCursorID(rawCursor)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid cursor id: %w", err))
		return
	}
	nodeID, err := domain.ParseNodeID(rawNode)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid node id: %w", err))
		return
	}

	e, seq, err := s.Boards.Toggle(r.Context(), boardID, cursorID, nodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"seq":  seq,
		"type": e.Type(),
	})
}

// SubscribeBoard handles the GET /boards/{board}/stream request (SSE).
// The first data frame is the full snapshot; later frames are diffs.
// ?watch=nodes,cursors drops diffs that touch none of the listed parts.
func (s *Server) SubscribeBoard(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeBoard: Streaming not supported")
		return
	}

	boardID, ok := s.boardParam(w, r)
	if !ok {
		return
	}
	watchList, err := watchParam(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ch, cancel := s.Streams.Subscribe(boardID)
	defer cancel()

	snap, err := s.Boards.Snapshot(r.Context(), boardID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	initial, err := json.Marshal(snap)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Board Updates", "board", boardID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "board", boardID)
			return
		case msg, ok := <-ch:
			if !ok {
				// Dropped for falling behind; the client must reload the snapshot.
				fmt.Fprintf(w, "event: resync\ndata: reconnect\n\n")
				flusher.Flush()
				s.logger.Warn("SSE: Subscriber dropped", "board", boardID)
				return
			}
			if !keep(msg, watchList, snap.Version) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// keep reports whether a diff is newer than the initial snapshot and
// touches one of the watched parts. An empty watch list watches everything.
func keep(msg string, watchList []string, since uint64) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	if diff.Version <= since {
		return false
	}
	if len(watchList) == 0 {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "nodes":
			if len(diff.Nodes) > 0 {
				return true
			}
		case "cursors":
			if len(diff.Cursors) > 0 {
				return true
			}
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) boardParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	boardID, err := pathParam(r, "board")
	if err != nil {
		writeBadRequest(w, err)
		return "", false
	}
	return boardID, true
}

func writeBadRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Warn("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusFor returns the HTTP status for an error returned by Boards.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBoardNotFound),
		errors.Is(err, domain.ErrUnknownNode),
		errors.Is(err, domain.ErrUnknownCursor):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownEventType),
		errors.Is(err, domain.ErrUnknownNodeType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
