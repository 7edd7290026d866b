package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/swimlane"
	"github.com/aretw0/swimlane/internal/logging"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const boardsURI = "swimlane://boards"

// Boards is the board access the MCP server needs. *session.Manager satisfies it.
type Boards interface {
	Apply(ctx context.Context, boardID string, e domain.Event) (uint64, error)
	Toggle(ctx context.Context, boardID string, cursorID domain.CursorID, nodeID domain.NodeID) (domain.Event, uint64, error)
	Snapshot(ctx context.Context, boardID string) (domain.Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// ApplyEventArgs are the arguments of apply_event.
type ApplyEventArgs struct {
	Board string         `json:"board"`
	Type  string         `json:"type"`
	Data  map[string]any `json:"data"`
}

// ToggleArgs are the arguments of toggle_selection.
type ToggleArgs struct {
	Board    string `json:"board"`
	CursorID string `json:"cursor_id"`
	NodeID   string `json:"node_id"`
}

// BoardArgs are the arguments of get_board.
type BoardArgs struct {
	Board string `json:"board"`
}

// ApplyResponse reports an appended event.
type ApplyResponse struct {
	Seq  uint64           `json:"seq" jsonschema_description:"Position of the event in the board log"`
	Type domain.EventType `json:"type" jsonschema_description:"Type of the applied event"`
}

// BoardList lists known boards.
type BoardList struct {
	Boards []string `json:"boards" jsonschema_description:"Ids of boards with at least one event"`
}

// Server exposes boards as an MCP Server.
type Server struct {
	boards    Boards
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for tool calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(boards Boards, opts ...Option) *Server {
	s := &Server{
		boards:    boards,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("swimlane-mcp", swimlane.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: apply_event
	applyTool := mcp.NewTool("apply_event",
		mcp.WithDescription("Apply one event to a board. Ids are UUID strings; node_type is Role, Command, Event or View."),
		mcp.WithString("board", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Event type"),
			mcp.Enum(eventTypeNames()...),
		),
		mcp.WithObject("data", mcp.Description("Event payload, e.g. {\"id\": \"...\", \"label\": \"Some Node\", \"node_type\": \"Command\", \"row\": 0, \"col\": 1}")),
		mcp.WithOutputSchema[ApplyResponse](),
	)
	s.mcpServer.AddTool(applyTool, mcp.NewStructuredToolHandler(s.handleApplyEvent))

	// TOOL: toggle_selection
	toggleTool := mcp.NewTool("toggle_selection",
		mcp.WithDescription("Select the node for the cursor, or deselect it if it is already selected."),
		mcp.WithString("board", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("cursor_id", mcp.Required(), mcp.Description("Cursor id")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node id")),
		mcp.WithOutputSchema[ApplyResponse](),
	)
	s.mcpServer.AddTool(toggleTool, mcp.NewStructuredToolHandler(s.handleToggle))

	// TOOL: get_board
	getTool := mcp.NewTool("get_board",
		mcp.WithDescription("Read the nodes and cursors of a board with their on-screen transforms."),
		mcp.WithString("board", mcp.Required(), mcp.Description("Board id")),
		mcp.WithOutputSchema[domain.Snapshot](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetBoard))

	// TOOL: list_boards
	listTool := mcp.NewTool("list_boards",
		mcp.WithDescription("List boards that have events."),
		mcp.WithOutputSchema[BoardList](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListBoards))
}

func (s *Server) handleApplyEvent(ctx context.Context, request mcp.CallToolRequest, args ApplyEventArgs) (ApplyResponse, error) {
	if args.Board == "" {
		return ApplyResponse{}, errors.New("board is required")
	}
	if args.Data == nil {
		args.Data = map[string]any{}
	}

	e, err := domain.DecodeEvent(domain.EventType(args.Type), args.Data)
	if err != nil {
		s.logger.Warn("MCP apply_event: invalid event", "type", args.Type, "err", err)
		return ApplyResponse{}, err
	}

	seq, err := s.boards.Apply(ctx, args.Board, e)
	if err != nil {
		return ApplyResponse{}, fmt.Errorf("apply failed: %w", err)
	}
	return ApplyResponse{Seq: seq, Type: e.Type()}, nil
}

func (s *Server) handleToggle(ctx context.Context, request mcp.CallToolRequest, args ToggleArgs) (ApplyResponse, error) {
	cursorID, err := domain.ParseCursorID(args.CursorID)
	if err != nil {
		return ApplyResponse{}, err
	}
	nodeID, err := domain.ParseNodeID(args.NodeID)
	if err != nil {
		return ApplyResponse{}, err
	}

	e, seq, err := s.boards.Toggle(ctx, args.Board, cursorID, nodeID)
	if err != nil {
		return ApplyResponse{}, fmt.Errorf("toggle failed: %w", err)
	}
	return ApplyResponse{Seq: seq, Type: e.Type()}, nil
}

func (s *Server) handleGetBoard(ctx context.Context, request mcp.CallToolRequest, args BoardArgs) (domain.Snapshot, error) {
	if args.Board == "" {
		return domain.Snapshot{}, errors.New("board is required")
	}
	return s.boards.Snapshot(ctx, args.Board)
}

func (s *Server) handleListBoards(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (BoardList, error) {
	boards, err := s.boards.List(ctx)
	if err != nil {
		return BoardList{}, fmt.Errorf("list failed: %w", err)
	}
	if boards == nil {
		boards = []string{}
	}
	return BoardList{Boards: boards}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: swimlane://boards
	s.mcpServer.AddResource(mcp.NewResource(boardsURI, "Boards",
		mcp.WithResourceDescription("Ids of boards with at least one event"),
		mcp.WithMIMEType("application/json"),
	), s.readBoards)
}

func (s *Server) readBoards(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := s.handleListBoards(ctx, mcp.CallToolRequest{}, nil)
	if err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      boardsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func eventTypeNames() []string {
	types := domain.EventTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
