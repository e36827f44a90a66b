package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/adapters/sqlstore"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
)

var _ ports.HandoffSink = (*sqlstore.Sink)(nil)

func openSQLite(t *testing.T) *sqlstore.Sink {
	t.Helper()
	sink, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "handoffs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func handoff(session string, d domain.Domain, at time.Time) *domain.Handoff {
	slots := domain.Slots{}
	slots.Merge("severity", domain.Int(6))
	slots.Merge("assoc", domain.List("nausea"))
	return &domain.Handoff{
		SessionID:  session,
		Domain:     d,
		Slots:      slots,
		Summary:    "Thanks for the details.",
		ModelInput: "Patient reporting " + d.Label() + " symptoms.",
		CreatedAt:  at,
	}
}

func TestSink_DeliverAndQuery(t *testing.T) {
	sink := openSQLite(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Deliver(ctx, handoff("a", domain.Headache, t0)))
	require.NoError(t, sink.Deliver(ctx, handoff("b", domain.Fever, t0.Add(time.Minute))))
	require.NoError(t, sink.Deliver(ctx, handoff("a", domain.Cough, t0.Add(2*time.Minute))))

	got, err := sink.ForSession(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Headache, got[0].Domain)
	assert.Equal(t, domain.Cough, got[1].Domain)
	assert.True(t, t0.Equal(got[0].CreatedAt))
	sev, ok := got[0].Slots["severity"].Int()
	assert.True(t, ok)
	assert.Equal(t, 6, sev)
	assert.Equal(t, []string{"nausea"}, got[0].Slots["assoc"].Items())

	recent, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].SessionID)
	assert.Equal(t, "b", recent[1].SessionID)
}

func TestSink_MigrateIsIdempotent(t *testing.T) {
	sink := openSQLite(t)
	assert.NoError(t, sink.Migrate(context.Background()))
	assert.NoError(t, sink.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}
