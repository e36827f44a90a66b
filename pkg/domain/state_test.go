package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogState_BeginDiscardsPreviousSlots(t *testing.T) {
	s := domain.NewDialogState("s1")
	s.Begin(domain.Fever, "ask_duration")
	s.Slots.Merge("duration", domain.String("2 days"))

	s.Begin(domain.Cough, "ask_type")
	assert.Equal(t, domain.Cough, s.ActiveDomain)
	assert.Equal(t, "ask_type", s.Stage)
	assert.Empty(t, s.Slots)
}

func TestDialogState_Reset(t *testing.T) {
	s := domain.NewDialogState("s1")
	s.Begin(domain.Skin, "ask_location")
	s.Reset()
	assert.False(t, s.Active())
	assert.Empty(t, s.Stage)
	assert.Empty(t, s.Slots)
}

func TestDialogState_SnapshotIsDeep(t *testing.T) {
	s := domain.NewDialogState("s1")
	s.Begin(domain.Headache, "ask_assoc")
	s.Slots.Merge("assoc", domain.List("nausea"))

	snap := s.Snapshot()
	snap.Slots.Merge("assoc", domain.List("aura"))
	snap.Stage = "summary"

	assert.Equal(t, "ask_assoc", s.Stage)
	assert.Equal(t, []string{"nausea"}, s.Slots["assoc"].Items())
}

func TestParseDomain(t *testing.T) {
	d, err := domain.ParseDomain(" Fever ")
	require.NoError(t, err)
	assert.Equal(t, domain.Fever, d)

	d, err = domain.ParseDomain("none")
	require.NoError(t, err)
	assert.Equal(t, domain.None, d)

	_, err = domain.ParseDomain("sneeze")
	assert.ErrorIs(t, err, domain.ErrUnknownDomain)
}

func TestAll_CoversEveryValidDomain(t *testing.T) {
	for _, d := range domain.All() {
		assert.True(t, d.Valid(), d.String())
	}
	assert.False(t, domain.None.Valid())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnTurn: func(_ context.Context, _ *domain.TurnEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnTurn: func(_ context.Context, _ *domain.TurnEvent) { calls = append(calls, "b") }}

	h := a.Merge(b)
	h.Turn(context.Background(), &domain.TurnEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)

	var nilHooks *domain.LifecycleHooks
	nilHooks.Turn(context.Background(), &domain.TurnEvent{})
}
