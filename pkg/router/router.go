// Package router decides, for each user turn, whether the text continues the
// active flow, starts a new one, or is answered from the canned corpus.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/classifier"
	"github.com/aretw0/triage/pkg/corpus"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
	"github.com/aretw0/triage/pkg/lexicon"
)

const (
	// DefaultThreshold is the minimum confidence (inclusive) to trust a tag.
	DefaultThreshold = 0.75
	// GreetingTag is the corpus entry served by the greeting short-circuit.
	GreetingTag = "Greeting"
)

// DefaultGreetings are the tokens that short-circuit to a greeting when they open a message.
var DefaultGreetings = []string{"werte"}

var bareSeverity = regexp.MustCompile(`^\s*(10|[1-9])\s*$`)

// Router routes turns over a flow engine. It holds no per-session state and is
// safe for concurrent use; callers serialize turns of the same session.
type Router struct {
	engine     *flow.Engine
	corpus     *corpus.Corpus
	classifier classifier.Classifier
	fallback   classifier.Classifier
	threshold  float64
	greetings  []string
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClassifier sets the primary classifier. Without one the pattern
// classifier is used directly.
func WithClassifier(c classifier.Classifier) Option {
	return func(r *Router) {
		r.classifier = c
	}
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(r *Router) {
		r.threshold = t
	}
}

// WithGreetings overrides DefaultGreetings. An empty list disables the short-circuit.
func WithGreetings(tokens []string) Option {
	return func(r *Router) {
		r.greetings = nil
		for _, t := range tokens {
			if t = lexicon.Normalize(t); t != "" {
				r.greetings = append(r.greetings, t)
			}
		}
	}
}

// WithHooks registers lifecycle callbacks for classifier events.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = h
	}
}

// WithLogger sets the router logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a router. The corpus backs both the canned bridge and the
// fallback pattern classifier.
func New(engine *flow.Engine, c *corpus.Corpus, opts ...Option) *Router {
	r := &Router{
		engine:    engine,
		corpus:    c,
		fallback:  classifier.NewPattern(c),
		threshold: DefaultThreshold,
		greetings: DefaultGreetings,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route handles one turn against st, mutating it in place.
// Errors are limited to engine misconfiguration; every routing path yields a reply.
func (r *Router) Route(ctx context.Context, st *domain.DialogState, text string) (domain.Reply, error) {
	if reply, ok := r.greeting(text); ok {
		r.logger.Debug("greeting short-circuit", "session_id", st.SessionID)
		return reply, nil
	}

	if st.Active() {
		out, err := r.engine.Continue(ctx, st, text)
		switch {
		case err == nil:
			return outcomeReply(out), nil
		case errors.Is(err, domain.ErrUnknownDomain), errors.Is(err, domain.ErrUnknownStage):
			r.logger.Warn("discarding corrupt dialog state", "session_id", st.SessionID,
				"domain", st.ActiveDomain, "stage", st.Stage, "error", err)
			st.Reset()
		default:
			return domain.Reply{}, err
		}
	}

	return r.fresh(ctx, st, text)
}

// fresh routes a turn when no flow is active.
func (r *Router) fresh(ctx context.Context, st *domain.DialogState, text string) (domain.Reply, error) {
	if m := bareSeverity.FindStringSubmatch(text); m != nil {
		return r.severityShortcut(ctx, st, m[1])
	}

	res := r.classify(ctx, st, text)
	if res.Confidence >= r.threshold {
		if d, ok := r.engine.Flows().DomainForTag(res.Tag); ok {
			return r.start(ctx, st, d, "classifier")
		}
		if resp, ok := r.corpus.Response(res.Tag); ok {
			r.logger.Debug("canned response", "session_id", st.SessionID, "tag", res.Tag)
			return domain.Reply{Text: resp, Kind: domain.ReplyCanned}, nil
		}
	}

	expanded := r.engine.Expander().Expand(text)
	if d, ok := r.engine.Flows().DomainForKeywords(expanded); ok {
		return r.start(ctx, st, d, "keywords")
	}
	return r.start(ctx, st, domain.General, "fallback")
}

// severityShortcut starts the general flow with severity pre-filled and
// immediately continues it with empty text. That passes the ask-once
// ask_category stage, so the reply is the next unmet stage's prompt
// (ask_location), not the opening question.
func (r *Router) severityShortcut(ctx context.Context, st *domain.DialogState, digits string) (domain.Reply, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("bare severity %q: %w", digits, err)
	}
	if _, err := r.engine.Start(ctx, st, domain.General); err != nil {
		return domain.Reply{}, err
	}
	st.Slots.Merge("severity", domain.Int(n))
	r.logger.Debug("bare severity shortcut", "session_id", st.SessionID, "severity", n)

	out, err := r.engine.Continue(ctx, st, "")
	if err != nil {
		return domain.Reply{}, err
	}
	return outcomeReply(out), nil
}

func (r *Router) start(ctx context.Context, st *domain.DialogState, d domain.Domain, via string) (domain.Reply, error) {
	prompt, err := r.engine.Start(ctx, st, d)
	if err != nil {
		return domain.Reply{}, err
	}
	r.logger.Debug("flow selected", "session_id", st.SessionID, "domain", d, "via", via)
	return domain.Reply{Text: prompt, Kind: domain.ReplyPrompt}, nil
}

// classify asks the primary classifier and degrades to corpus patterns on failure.
func (r *Router) classify(ctx context.Context, st *domain.DialogState, text string) domain.Classification {
	c := r.classifier
	if c == nil {
		c = r.fallback
	}
	res, err := c.Classify(ctx, text)
	fallback := false
	if err != nil {
		r.logger.Warn("classifier unavailable, using patterns", "session_id", st.SessionID,
			"classifier", c.Name(), "error", err)
		c = r.fallback
		res, _ = r.fallback.Classify(ctx, text)
		fallback = true
	}

	r.logger.Debug("classified", "session_id", st.SessionID, "classifier", c.Name(),
		"tag", res.Tag, "confidence", res.Confidence)
	r.hooks.Classify(ctx, &domain.ClassifyEvent{
		EventBase:  domain.EventBase{Timestamp: r.now(), Type: domain.EventClassify, SessionID: st.SessionID},
		Classifier: c.Name(),
		Result:     res,
		Fallback:   fallback,
		Err:        err,
	})
	return res
}

// greeting serves a canned greeting when text opens with a greeting token.
// Dialog state is not touched. Without a corpus greeting entry it never fires.
func (r *Router) greeting(text string) (domain.Reply, bool) {
	norm := lexicon.Normalize(text)
	for _, tok := range r.greetings {
		if lexicon.Index(norm, tok) != 0 {
			continue
		}
		resp, ok := r.corpus.Response(GreetingTag)
		if !ok {
			return domain.Reply{}, false
		}
		return domain.Reply{Text: resp, Kind: domain.ReplyGreeting}, true
	}
	return domain.Reply{}, false
}

func outcomeReply(out flow.Outcome) domain.Reply {
	if out.Final {
		return domain.Reply{Text: out.Text, Kind: domain.ReplySummary, Final: true, Handoff: out.Handoff}
	}
	return domain.Reply{Text: out.Text, Kind: domain.ReplyPrompt}
}
