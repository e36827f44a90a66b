package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/adapters/memory"
	"github.com/aretw0/triage/pkg/classifier"
	"github.com/aretw0/triage/pkg/corpus"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
	"github.com/aretw0/triage/pkg/lexicon"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/aretw0/triage/pkg/router"
	"github.com/aretw0/triage/pkg/runner"
	"github.com/aretw0/triage/pkg/session"
)

// Service is the high-level entry point: one call per inbound message.
// It owns the session store and serializes turns per session; different
// sessions never share mutable state.
type Service struct {
	manager *session.Manager
	router  *router.Router
	engine  *flow.Engine
	corpus  *corpus.Corpus
	sink    ports.HandoffSink
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time

	store      ports.StateStore
	locker     ports.DistributedLocker
	flows      *flow.Set
	expander   *lexicon.Expander
	routerOpts []router.Option
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithStore sets the state store (default: in-memory).
func WithStore(s ports.StateStore) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(svc *Service) {
		svc.locker = l
	}
}

// WithFlows replaces the built-in flow tables.
func WithFlows(set *flow.Set) Option {
	return func(svc *Service) {
		svc.flows = set
	}
}

// WithCorpus replaces the built-in canned-response corpus.
func WithCorpus(c *corpus.Corpus) Option {
	return func(svc *Service) {
		svc.corpus = c
	}
}

// WithExpander replaces the default bilingual synonym table.
func WithExpander(e *lexicon.Expander) Option {
	return func(svc *Service) {
		svc.expander = e
	}
}

// WithClassifier sets the primary intent classifier (default: corpus patterns).
func WithClassifier(c classifier.Classifier) Option {
	return func(svc *Service) {
		svc.routerOpts = append(svc.routerOpts, router.WithClassifier(c))
	}
}

// WithThreshold sets the classifier confidence threshold.
func WithThreshold(t float64) Option {
	return func(svc *Service) {
		svc.routerOpts = append(svc.routerOpts, router.WithThreshold(t))
	}
}

// WithGreetings sets the greeting short-circuit tokens.
func WithGreetings(tokens []string) Option {
	return func(svc *Service) {
		svc.routerOpts = append(svc.routerOpts, router.WithGreetings(tokens))
	}
}

// WithHandoffSink delivers every summary handoff to sink.
func WithHandoffSink(sink ports.HandoffSink) Option {
	return func(svc *Service) {
		svc.sink = sink
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(svc *Service) {
		svc.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

// New builds a Service. Without options it runs on the embedded flow tables
// and corpus, the pattern classifier and an in-memory store.
func New(opts ...Option) (*Service, error) {
	svc := &Service{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	var err error
	if svc.flows == nil {
		if svc.flows, err = flow.Builtin(); err != nil {
			return nil, fmt.Errorf("load flows: %w", err)
		}
	}
	if svc.corpus == nil {
		if svc.corpus, err = corpus.Builtin(corpus.WithLogger(svc.logger)); err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
	}
	if svc.expander == nil {
		svc.expander = lexicon.Default()
	}
	if svc.store == nil {
		svc.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(svc.logger), session.WithClock(svc.now)}
	if svc.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(svc.locker))
	}
	svc.manager = session.NewManager(svc.store, sessionOpts...)

	svc.engine = flow.NewEngine(svc.flows,
		flow.WithExpander(svc.expander),
		flow.WithHooks(svc.hooks),
		flow.WithLogger(svc.logger),
		flow.WithClock(svc.now),
	)
	routerOpts := append([]router.Option{
		router.WithHooks(svc.hooks),
		router.WithLogger(svc.logger),
	}, svc.routerOpts...)
	svc.router = router.New(svc.engine, svc.corpus, routerOpts...)
	return svc, nil
}

// Handle processes one inbound message for sessionID. With reset set, the
// session is cleared before the message is routed; a reset with an empty
// message only clears. The returned reply carries a snapshot of the state
// after the turn.
//
// Errors are limited to invalid input (see IsInputError) and store failures.
func (s *Service) Handle(ctx context.Context, sessionID, utterance string, reset bool) (domain.Reply, error) {
	start := s.now()
	if strings.TrimSpace(sessionID) == "" {
		return domain.Reply{}, domain.ErrInvalidSessionID
	}
	text, err := runner.CleanUtterance(utterance)
	if errors.Is(err, domain.ErrEmptyUtterance) && reset {
		text, err = "", nil
	}
	if err != nil {
		return domain.Reply{}, err
	}

	var reply domain.Reply
	var turnDomain domain.Domain
	state, err := s.manager.Update(ctx, sessionID, func(ctx context.Context, st *domain.DialogState) error {
		if reset {
			s.logger.Debug("session reset", "session_id", sessionID)
			st.Reset()
			if text == "" {
				reply = domain.Reply{Kind: domain.ReplyReset}
				return nil
			}
		}
		var err error
		reply, err = s.router.Route(ctx, st, text)
		turnDomain = st.ActiveDomain
		return err
	})
	if err != nil {
		s.logger.Error("turn failed", "session_id", sessionID, "err", err)
		return domain.Reply{}, err
	}

	if reply.Handoff != nil {
		turnDomain = reply.Handoff.Domain
		s.deliver(ctx, reply.Handoff)
	}
	reply.State = state.Snapshot()

	s.hooks.Turn(ctx, &domain.TurnEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventTurn, SessionID: sessionID},
		Kind:      reply.Kind,
		Domain:    turnDomain,
		Duration:  s.now().Sub(start),
	})
	return reply, nil
}

// deliver hands a summary to the sink. A failing sink never fails the turn:
// the user already has their summary and the state has been reset.
func (s *Service) deliver(ctx context.Context, h *domain.Handoff) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Deliver(ctx, h); err != nil {
		s.logger.Error("handoff delivery failed", "session_id", h.SessionID, "domain", h.Domain, "err", err)
	}
}

// Session returns the stored state of a session.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.DialogState, error) {
	return s.manager.Load(ctx, sessionID)
}

// Sessions lists stored session IDs.
func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.manager.List(ctx)
}

// DeleteSession removes a session. Missing sessions are reported as domain.ErrSessionNotFound.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.manager.Load(ctx, sessionID); err != nil {
		return err
	}
	return s.manager.Delete(ctx, sessionID)
}

// Flows returns the loaded flow tables.
func (s *Service) Flows() *flow.Set { return s.flows }

// IsInputError reports whether err was caused by the caller's message rather
// than by the service, so transports can map it to a client error.
func IsInputError(err error) bool {
	return runner.IsInputError(err)
}
