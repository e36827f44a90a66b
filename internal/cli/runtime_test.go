package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/internal/config"
	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/adapters/sqlstore"
	"github.com/aretw0/triage/pkg/classifier"
	"github.com/aretw0/triage/pkg/corpus"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
)

func build(t *testing.T, cfg *config.Config) *Runtime {
	t.Helper()
	rt, err := Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestBuild_Defaults(t *testing.T) {
	rt := build(t, config.Default())
	assert.NotNil(t, rt.Metrics)
	assert.Empty(t, rt.Checks)

	reply, err := rt.Service.Handle(context.Background(), "s1", "I have a headache", false)
	require.NoError(t, err)
	assert.Equal(t, domain.Headache, reply.State.ActiveDomain)
	assert.Equal(t, "ask_location", reply.State.Stage)
}

func TestBuild_RedisEncrypted(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Kind = config.StoreRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Lock = true
	cfg.Store.EncryptionKey = strings.Repeat("ab", 32)
	rt := build(t, cfg)
	ctx := context.Background()

	require.Contains(t, rt.Checks, "redis")
	require.NoError(t, rt.Checks["redis"](ctx))

	_, err := rt.Service.Handle(ctx, "s1", "I have a headache", false)
	require.NoError(t, err)

	raw, err := mr.Get(cfg.Store.Redis.Prefix + "s1")
	require.NoError(t, err)
	assert.Contains(t, raw, "__encrypted__")
	assert.NotContains(t, raw, "headache")

	st, err := rt.Service.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.Headache, st.ActiveDomain)
}

func TestBuild_FileStoreRedactsSlots(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Kind = config.StoreFile
	cfg.Store.Path = t.TempDir()
	cfg.Store.RedactSlots = []string{"^location$"}
	rt := build(t, cfg)
	ctx := context.Background()

	_, err := rt.Service.Handle(ctx, "s1", "I have a headache", false)
	require.NoError(t, err)
	reply, err := rt.Service.Handle(ctx, "s1", "front", false)
	require.NoError(t, err)
	assert.Equal(t, "ask_severity", reply.State.Stage)

	st, err := rt.Service.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ask_severity", st.Stage)
	loc, ok := st.Slots["location"].Str()
	require.True(t, ok)
	assert.Equal(t, "***", loc)
}

func TestBuild_SQLiteHandoff(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "handoffs.db")
	cfg := config.Default()
	cfg.Handoff.Driver = config.HandoffSQLite
	cfg.Handoff.DSN = dsn
	rt := build(t, cfg)
	ctx := context.Background()
	require.NoError(t, rt.Checks["handoff"](ctx))

	for _, msg := range []string{"I have a headache", "front, severity 7, for 2 days", "light hurts"} {
		_, err := rt.Service.Handle(ctx, "s1", msg, false)
		require.NoError(t, err)
	}
	require.NoError(t, rt.Close())

	sink, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, dsn)
	require.NoError(t, err)
	defer sink.Close()
	handoffs, err := sink.ForSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, handoffs, 1)
	assert.Equal(t, domain.Headache, handoffs[0].Domain)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown store", func(c *config.Config) { c.Store.Kind = "etcd" }},
		{"unknown classifier", func(c *config.Config) { c.Classifier.Kind = "bert" }},
		{"missing flows dir", func(c *config.Config) { c.Flows.Dir = filepath.Join(t.TempDir(), "nope") }},
		{"missing corpus", func(c *config.Config) { c.Corpus.Path = filepath.Join(t.TempDir(), "nope.json") }},
		{"missing lexicon", func(c *config.Config) { c.Lexicon.Path = filepath.Join(t.TempDir(), "nope.yaml") }},
		{"short key", func(c *config.Config) { c.Store.EncryptionKey = "abcd" }},
		{"bad redaction pattern", func(c *config.Config) { c.Store.RedactSlots = []string{"("} }},
		{"bad handoff driver", func(c *config.Config) { c.Handoff.Driver = "mysql"; c.Handoff.DSN = "x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			rt, err := Build(context.Background(), cfg, logging.NewNop())
			assert.Error(t, err)
			assert.Nil(t, rt)
		})
	}
}

func TestBuildClassifier(t *testing.T) {
	flows, err := flow.Builtin()
	require.NoError(t, err)
	corp, err := corpus.Builtin()
	require.NoError(t, err)
	ctx := context.Background()

	cfg := config.Default()
	clf, err := buildClassifier(ctx, cfg, flows, corp)
	require.NoError(t, err)
	assert.IsType(t, &classifier.Pattern{}, clf)

	cfg.Classifier.Kind = config.ClassifierOpenAI
	cfg.Classifier.APIKey = "test-key"
	clf, err = buildClassifier(ctx, cfg, flows, corp)
	require.NoError(t, err)
	assert.IsType(t, &classifier.Cached{}, clf)

	cfg.Classifier.CacheSize = 0
	clf, err = buildClassifier(ctx, cfg, flows, corp)
	require.NoError(t, err)
	assert.IsType(t, &classifier.OpenAI{}, clf)
}

func TestIntentTags(t *testing.T) {
	flows, err := flow.Builtin()
	require.NoError(t, err)
	corp, err := corpus.Builtin()
	require.NoError(t, err)

	tags := intentTags(flows, corp)
	assert.Contains(t, tags, "Symptom_Headache")
	assert.Contains(t, tags, "HeadacheFollowup")
	assert.Contains(t, tags, "Greeting")

	seen := make(map[string]bool)
	for _, tag := range tags {
		assert.False(t, seen[tag], "duplicate tag %s", tag)
		seen[tag] = true
	}
}
