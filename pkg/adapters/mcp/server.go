package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/internal/presentation/graph"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
)

// FlowsURI is the resource listing the loaded flow tables.
const FlowsURI = "triage://flows"

// TurnResult is the structured output of the triage_message tool.
type TurnResult struct {
	SessionID string              `json:"session_id" jsonschema_description:"Conversation the message was routed in"`
	Reply     string              `json:"reply" jsonschema_description:"Text to show the patient"`
	Kind      domain.ReplyKind    `json:"kind" jsonschema_description:"prompt, summary, canned, greeting or reset"`
	Final     bool                `json:"is_final_message" jsonschema_description:"True when the reply is a terminal summary"`
	State     *domain.DialogState `json:"state,omitempty" jsonschema_description:"Dialog state after the turn"`
	Handoff   *domain.Handoff     `json:"handoff,omitempty" jsonschema_description:"Structured summary for downstream models"`
}

// MessageArgs are the arguments of the triage_message tool.
type MessageArgs struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Reset     bool   `json:"reset"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// Service is the part of *triage.Service the MCP surface needs.
type Service interface {
	Handle(ctx context.Context, sessionID, utterance string, reset bool) (domain.Reply, error)
	Session(ctx context.Context, sessionID string) (*domain.DialogState, error)
	Flows() *flow.Set
}

// Server exposes a triage Service as an MCP server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("triage-mcp", triage.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	messageTool := mcp.NewTool("triage_message",
		mcp.WithDescription("Send one patient message to a triage conversation and get the assistant's reply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithString("message", mcp.Description("Patient utterance (may be empty when reset is true)")),
		mcp.WithBoolean("reset", mcp.Description("Clear the conversation before handling the message")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(messageTool, mcp.NewStructuredToolHandler(s.handleMessage))

	resetTool := mcp.NewTool("reset_session",
		mcp.WithDescription("Discard any in-progress symptom flow for a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Inspect the stored dialog state of a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
	), mcp.NewTypedToolHandler(s.handleGetSession))
}

func (s *Server) handleMessage(ctx context.Context, _ mcp.CallToolRequest, args MessageArgs) (TurnResult, error) {
	return s.turn(ctx, args.SessionID, args.Message, args.Reset)
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (TurnResult, error) {
	return s.turn(ctx, args.SessionID, "", true)
}

func (s *Server) turn(ctx context.Context, sessionID, message string, reset bool) (TurnResult, error) {
	reply, err := s.svc.Handle(ctx, sessionID, message, reset)
	if err != nil {
		s.logger.Warn("MCP turn rejected", "session_id", sessionID, "err", err)
		return TurnResult{}, err
	}
	return TurnResult{
		SessionID: sessionID,
		Reply:     reply.Text,
		Kind:      reply.Kind,
		Final:     reply.Final,
		State:     reply.State,
		Handoff:   reply.Handoff,
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (*mcp.CallToolResult, error) {
	st, err := s.svc.Session(ctx, args.SessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// flowSummary is the JSON shape of one entry of triage://flows.
type flowSummary struct {
	Domain  domain.Domain `json:"domain"`
	Intents []string      `json:"intents,omitempty"`
	Stages  []string      `json:"stages"`
	Mermaid string        `json:"mermaid"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowsURI, "Triage flow tables",
		mcp.WithResourceDescription("Stage order and Mermaid diagram of every symptom flow"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var out []flowSummary
		for _, def := range s.svc.Flows().All() {
			out = append(out, flowSummary{
				Domain:  def.Domain,
				Intents: def.Intents,
				Stages:  def.StageIDs(),
				Mermaid: graph.GenerateMermaid(def, nil),
			})
		}
		raw, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to encode flows: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowsURI,
				MIMEType: "application/json",
				Text:     string(raw),
			},
		}, nil
	})
}
