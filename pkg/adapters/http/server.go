package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/internal/presentation/graph"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
	"github.com/aretw0/triage/pkg/runner"
)

// Service is the part of *triage.Service the transport needs.
type Service interface {
	Handle(ctx context.Context, sessionID, utterance string, reset bool) (domain.Reply, error)
	Session(ctx context.Context, sessionID string) (*domain.DialogState, error)
	Sessions(ctx context.Context) ([]string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Flows() *flow.Set
}

// HealthCheck probes a backing dependency.
type HealthCheck func(ctx context.Context) error

// ChatResponse is the body returned for every turn.
type ChatResponse struct {
	SessionID string              `json:"session_id"`
	Reply     string              `json:"reply"`
	Kind      domain.ReplyKind    `json:"kind"`
	Final     bool                `json:"is_final_message"`
	State     *domain.DialogState `json:"state"`
	Handoff   *domain.Handoff     `json:"handoff,omitempty"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Reset     bool   `json:"reset"`
}

// FlowInfo describes one loaded flow table.
type FlowInfo struct {
	Domain   domain.Domain `json:"domain"`
	Intents  []string      `json:"intents,omitempty"`
	Keywords []string      `json:"keywords,omitempty"`
	Stages   []StageInfo   `json:"stages"`
}

// StageInfo describes one stage of a flow.
type StageInfo struct {
	ID       string `json:"id"`
	Requires string `json:"requires,omitempty"`
}

// Server serves the triage conversation over HTTP and websocket.
type Server struct {
	svc     Service
	streams *StreamManager
	metrics http.Handler
	checks  map[string]HealthCheck
	logger  *slog.Logger
	newID   func() string
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

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithHealthCheck adds a named probe to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithIDGenerator overrides how session ids are minted for /v1/chat.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewServer creates a Server for svc.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		checks: make(map[string]HealthCheck),
		logger: logging.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// NewHandler builds the full router for svc.
func NewHandler(svc Service, opts ...Option) (http.Handler, error) {
	return NewServer(svc, opts...).Handler()
}

// Handler builds the chi router with contract validation.
func (s *Server) Handler() (http.Handler, error) {
	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := s.validateRequests(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/v1/ws", s.ServeWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(validate)
		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Post("/v1/chat", s.Chat)
		r.Get("/v1/sessions", s.ListSessions)
		r.Get("/v1/sessions/{id}", s.GetSession)
		r.Delete("/v1/sessions/{id}", s.DeleteSession)
		r.Post("/v1/sessions/{id}/messages", s.PostMessage)
		r.Get("/v1/flows", s.ListFlows)
		r.Get("/v1/flows/{domain}/graph", s.GetFlowGraph)
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Triage API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// Chat handles POST /v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	}
	s.respondTurn(w, r, sessionID, body.Message, body.Reset)
}

// PostMessage handles POST /v1/sessions/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.respondTurn(w, r, chi.URLParam(r, "id"), body.Message, body.Reset)
}

func (s *Server) respondTurn(w http.ResponseWriter, r *http.Request, sessionID, message string, reset bool) {
	resp, err := s.turn(r.Context(), sessionID, message, reset)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// turn runs one message through the service and broadcasts the resulting
// state diff to websocket subscribers of the session.
func (s *Server) turn(ctx context.Context, sessionID, message string, reset bool) (*ChatResponse, error) {
	var before *domain.DialogState
	watched := s.streams.HasSubscribers(sessionID)
	if watched {
		if st, err := s.svc.Session(ctx, sessionID); err == nil {
			before = st
		}
	}

	reply, err := s.svc.Handle(ctx, sessionID, message, reset)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.logger.Error("turn failed", "session_id", sessionID, "err", err)
		}
		return nil, err
	}

	if watched {
		if diff := domain.Diff(before, reply.State); diff != nil {
			if raw, err := json.Marshal(diff); err == nil {
				s.streams.Broadcast(sessionID, raw)
			}
		}
	}

	return &ChatResponse{
		SessionID: sessionID,
		Reply:     reply.Text,
		Kind:      reply.Kind,
		Final:     reply.Final,
		State:     reply.State,
		Handoff:   reply.Handoff,
	}, nil
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Sessions(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// ListFlows handles GET /v1/flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	defs := s.svc.Flows().All()
	out := make([]FlowInfo, 0, len(defs))
	for _, def := range defs {
		info := FlowInfo{Domain: def.Domain, Intents: def.Intents, Keywords: def.Keywords}
		for _, st := range def.Stages {
			info.Stages = append(info.Stages, StageInfo{ID: st.ID, Requires: st.Requires})
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetFlowGraph handles GET /v1/flows/{domain}/graph. With session_id set,
// the session's position is highlighted when it is inside this flow.
func (s *Server) GetFlowGraph(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	def, ok := s.svc.Flows().Get(d)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, d))
		return
	}

	var overlay *graph.Overlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		st, err := s.svc.Session(r.Context(), id)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		if st.ActiveDomain == d {
			overlay = &graph.Overlay{CurrentStage: st.Stage}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(def, overlay)))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", "check", name, "err", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  fmt.Sprintf("%s: %v", name, err),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "triage-http",
		"version":     triage.Version,
		"api_version": apiVersion,
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case runner.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}
