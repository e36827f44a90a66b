package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/config"
	"github.com/aretw0/triage/pkg/adapters/file"
	"github.com/aretw0/triage/pkg/adapters/memory"
	"github.com/aretw0/triage/pkg/adapters/redis"
	"github.com/aretw0/triage/pkg/adapters/sqlstore"
	"github.com/aretw0/triage/pkg/classifier"
	"github.com/aretw0/triage/pkg/corpus"
	"github.com/aretw0/triage/pkg/flow"
	"github.com/aretw0/triage/pkg/lexicon"
	"github.com/aretw0/triage/pkg/observability"
	"github.com/aretw0/triage/pkg/persistence/middleware"
	"github.com/aretw0/triage/pkg/ports"
)

// Runtime is a fully wired triage service plus the resources it owns.
type Runtime struct {
	Service *triage.Service
	Metrics *observability.Metrics
	// Checks are named health probes for the backing dependencies.
	Checks map[string]func(context.Context) error

	closers []func() error
}

// Close releases database and redis connections in reverse order.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build creates the service described by cfg. On error every resource
// opened so far is released.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Runtime, err error) {
	rt := &Runtime{Checks: make(map[string]func(context.Context) error)}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	flows, err := loadFlows(cfg)
	if err != nil {
		return nil, err
	}
	corp, err := loadCorpus(cfg, logger)
	if err != nil {
		return nil, err
	}
	expander, err := loadLexicon(cfg)
	if err != nil {
		return nil, err
	}

	opts := []triage.Option{
		triage.WithLogger(logger),
		triage.WithFlows(flows),
		triage.WithCorpus(corp),
		triage.WithExpander(expander),
		triage.WithThreshold(cfg.Classifier.Threshold),
	}
	if len(cfg.Router.Greetings) > 0 {
		opts = append(opts, triage.WithGreetings(cfg.Router.Greetings))
	}

	storeOpts, err := rt.buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, storeOpts...)

	clf, err := buildClassifier(ctx, cfg, flows, corp)
	if err != nil {
		return nil, err
	}
	opts = append(opts, triage.WithClassifier(clf))

	if cfg.Handoff.Driver != config.HandoffNone {
		sink, err := sqlstore.Open(ctx, cfg.Handoff.Driver, cfg.Handoff.DSN,
			sqlstore.WithNotifyChannel(cfg.Handoff.NotifyChannel),
			sqlstore.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("handoff sink: %w", err)
		}
		rt.closers = append(rt.closers, sink.Close)
		rt.Checks["handoff"] = sink.Ping
		opts = append(opts, triage.WithHandoffSink(sink))
	}

	rt.Metrics = observability.NewMetrics()
	opts = append(opts, triage.WithLifecycleHooks(
		observability.LogHooks(logger).Merge(rt.Metrics.Hooks()),
	))

	rt.Service, err = triage.New(opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("triage runtime ready",
		"store", cfg.Store.Kind,
		"classifier", cfg.Classifier.Kind,
		"flows", len(flows.All()),
		"handoff", cfg.Handoff.Driver,
	)
	return rt, nil
}

func loadFlows(cfg *config.Config) (*flow.Set, error) {
	if cfg.Flows.Dir == "" {
		return flow.Builtin()
	}
	set, err := flow.LoadDir(cfg.Flows.Dir)
	if err != nil {
		return nil, fmt.Errorf("load flows from %s: %w", cfg.Flows.Dir, err)
	}
	return set, nil
}

func loadCorpus(cfg *config.Config, logger *slog.Logger) (*corpus.Corpus, error) {
	if cfg.Corpus.Path == "" {
		return corpus.Builtin(corpus.WithLogger(logger))
	}
	c, err := corpus.LoadFile(cfg.Corpus.Path, corpus.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("load corpus from %s: %w", cfg.Corpus.Path, err)
	}
	return c, nil
}

func loadLexicon(cfg *config.Config) (*lexicon.Expander, error) {
	if cfg.Lexicon.Path == "" {
		return lexicon.Default(), nil
	}
	f, err := os.Open(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	e, err := lexicon.LoadExpander(f)
	if err != nil {
		return nil, fmt.Errorf("load lexicon from %s: %w", cfg.Lexicon.Path, err)
	}
	return e, nil
}

// buildStore returns the store (and locker) options, wrapped in the
// configured persistence middleware.
func (rt *Runtime) buildStore(cfg *config.Config, logger *slog.Logger) ([]triage.Option, error) {
	var (
		store ports.StateStore
		opts  []triage.Option
	)

	switch cfg.Store.Kind {
	case config.StoreMemory, "":
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(cfg.Store.Path)
	case config.StoreRedis:
		rs := redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB,
			redis.WithPrefix(cfg.Store.Redis.Prefix),
			redis.WithTTL(cfg.Store.Redis.TTL),
		)
		rt.closers = append(rt.closers, rs.Close)
		rt.Checks["redis"] = rs.Ping
		store = rs
		if cfg.Store.Lock {
			opts = append(opts, triage.WithLocker(redis.NewLocker(rs.Client(), redis.DefaultLockPrefix)))
		}
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}

	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})(store)
		logger.Debug("session encryption enabled", "fallback_keys", len(fallback))
	}

	if len(cfg.Store.RedactSlots) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Store.RedactSlots)
		if err != nil {
			return nil, fmt.Errorf("redact_slots: %w", err)
		}
		store = pii(store)
	}

	return append(opts, triage.WithStore(store)), nil
}

func buildClassifier(ctx context.Context, cfg *config.Config, flows *flow.Set, corp *corpus.Corpus) (classifier.Classifier, error) {
	var inner classifier.Classifier
	switch cfg.Classifier.Kind {
	case config.ClassifierPattern, "":
		// Pattern results are not cached.
		return classifier.NewPattern(corp), nil
	case config.ClassifierOpenAI:
		model := cfg.Classifier.Model
		if model == "" {
			model = classifier.DefaultOpenAIModel
		}
		inner = classifier.NewOpenAI(cfg.Classifier.APIKey, model, intentTags(flows, corp))
	case config.ClassifierGemini:
		model := cfg.Classifier.Model
		if model == "" {
			model = classifier.DefaultGeminiModel
		}
		g, err := classifier.NewGemini(ctx, cfg.Classifier.APIKey, model, intentTags(flows, corp))
		if err != nil {
			return nil, fmt.Errorf("gemini classifier: %w", err)
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", cfg.Classifier.Kind)
	}

	if cfg.Classifier.CacheSize <= 0 {
		return inner, nil
	}
	return classifier.NewCached(inner, cfg.Classifier.CacheSize)
}

// intentTags is every label an LLM classifier may answer with.
func intentTags(flows *flow.Set, corp *corpus.Corpus) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	for _, tag := range flows.Tags() {
		add(tag)
	}
	for _, e := range corp.Entries() {
		add(e.Tag)
	}
	return tags
}
