package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/extract"
	"github.com/aretw0/triage/pkg/lexicon"
)

// Outcome is the result of one engine step.
type Outcome struct {
	Text    string
	Final   bool
	Handoff *domain.Handoff
}

// Engine runs flow definitions against dialog states. It holds no per-session
// data and is safe for concurrent use.
type Engine struct {
	flows    *Set
	expander *lexicon.Expander
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithExpander sets the synonym expander used before vocabulary matching.
func WithExpander(e *lexicon.Expander) Option {
	return func(en *Engine) {
		en.expander = e
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(en *Engine) {
		en.hooks = h
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(en *Engine) {
		en.logger = logger
	}
}

// WithClock overrides the time source used for handoff timestamps.
func WithClock(now func() time.Time) Option {
	return func(en *Engine) {
		en.now = now
	}
}

// NewEngine creates an engine over a validated flow set.
func NewEngine(flows *Set, opts ...Option) *Engine {
	e := &Engine{
		flows:    flows,
		expander: lexicon.Default(),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Flows returns the definitions the engine runs.
func (e *Engine) Flows() *Set { return e.flows }

// Expander returns the synonym expander.
func (e *Engine) Expander() *lexicon.Expander { return e.expander }

// Start hands the conversation to d: previous slots are discarded, the stage is
// set to the first stage and its question is returned. Nothing is extracted.
func (e *Engine) Start(ctx context.Context, st *domain.DialogState, d domain.Domain) (string, error) {
	def, ok := e.flows.Get(d)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownDomain, d)
	}
	first := def.First()
	st.Begin(d, first.ID)

	e.logger.Info("flow started", "session_id", st.SessionID, "domain", d, "stage", first.ID)
	e.hooks.FlowStart(ctx, &domain.FlowEvent{
		EventBase: e.event(domain.EventFlowStart, st),
		Domain:    d,
		Stage:     first.ID,
	})
	return first.Prompt, nil
}

// Continue processes one reply for the active flow: extract, merge, then advance.
// It returns ErrUnknownDomain or ErrUnknownStage when the state does not match
// any flow table; the state is left untouched in that case.
func (e *Engine) Continue(ctx context.Context, st *domain.DialogState, text string) (Outcome, error) {
	def, ok := e.flows.Get(st.ActiveDomain)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, st.ActiveDomain)
	}
	idx, ok := def.index[st.Stage]
	if !ok || st.Stage == SummaryStage {
		return Outcome{}, fmt.Errorf("%w: %q in %s flow", domain.ErrUnknownStage, st.Stage, def.Domain)
	}
	if st.Slots == nil {
		st.Slots = make(domain.Slots)
	}

	e.extract(def, st, text)

	cur := def.Stages[idx]
	if !cur.AskOnce() && !st.Slots.Has(cur.Requires) {
		e.logger.Debug("stage unanswered", "session_id", st.SessionID, "domain", def.Domain, "stage", cur.ID)
		return Outcome{Text: cur.reprompt()}, nil
	}

	next := idx + 1
	for next < len(def.Stages)-1 {
		s := def.Stages[next]
		if s.AskOnce() || !st.Slots.Has(s.Requires) {
			break
		}
		next++
	}

	target := def.Stages[next]
	if target.ID == SummaryStage {
		return e.summarize(ctx, def, st, text)
	}

	from := st.Stage
	st.Stage = target.ID
	e.logger.Debug("stage advanced", "session_id", st.SessionID, "domain", def.Domain, "from", from, "stage", target.ID)
	e.hooks.StageAdvance(ctx, &domain.FlowEvent{
		EventBase: e.event(domain.EventStageAdvance, st),
		Domain:    def.Domain,
		From:      from,
		Stage:     target.ID,
	})
	return Outcome{Text: target.Prompt}, nil
}

func (e *Engine) extract(def *Definition, st *domain.DialogState, text string) {
	in := extract.NewInput(text, e.expander)
	for _, s := range def.Slots {
		if s.Bound != "" && s.Bound != st.Stage {
			continue
		}
		v, ok := s.extractor.Extract(in)
		if !ok {
			continue
		}
		if st.Slots.Merge(s.Key, v) {
			e.logger.Debug("slot captured", "session_id", st.SessionID, "domain", def.Domain, "slot", s.Key)
		}
	}
}

func (e *Engine) summarize(ctx context.Context, def *Definition, st *domain.DialogState, latest string) (Outcome, error) {
	text, err := renderSummary(def, st.Slots)
	if err != nil {
		return Outcome{}, err
	}

	handoff := &domain.Handoff{
		SessionID:  st.SessionID,
		Domain:     def.Domain,
		Slots:      st.Slots.Clone(),
		Summary:    text,
		ModelInput: ModelInput(def, st.Slots, latest),
		CreatedAt:  e.now().UTC(),
	}

	from := st.Stage
	st.Reset()

	e.logger.Info("flow summarized", "session_id", handoff.SessionID, "domain", def.Domain, "slots", len(handoff.Slots))
	e.hooks.FlowSummary(ctx, &domain.FlowEvent{
		EventBase: e.event(domain.EventFlowSummary, st),
		Domain:    def.Domain,
		From:      from,
		Stage:     SummaryStage,
	})
	return Outcome{Text: text, Final: true, Handoff: handoff}, nil
}

func (e *Engine) event(t domain.EventType, st *domain.DialogState) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, SessionID: st.SessionID}
}
