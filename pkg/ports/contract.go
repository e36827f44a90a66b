package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewDialogState(sessionID)
		state.Begin(domain.Headache, "ask_duration")
		state.Slots.Merge("location", domain.String("front"))
		state.Slots.Merge("severity", domain.Int(7))
		state.Slots.Merge("photophobia", domain.Bool(true))
		state.Slots.Merge("assoc", domain.List("nausea", "light"))
		state.Turns = 3
		state.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.Headache, loaded.ActiveDomain)
		assert.Equal(t, "ask_duration", loaded.Stage)
		assert.Equal(t, 3, loaded.Turns)
		assert.True(t, state.UpdatedAt.Equal(loaded.UpdatedAt))

		// Slot kinds must survive persistence; integers may not decay to floats.
		sev, ok := loaded.Slots["severity"].Int()
		assert.True(t, ok)
		assert.Equal(t, 7, sev)
		b, ok := loaded.Slots["photophobia"].Bool()
		assert.True(t, ok)
		assert.True(t, b)
		assert.Equal(t, []string{"nausea", "light"}, loaded.Slots["assoc"].Items())
		assert.Equal(t, state.Slots.Plain(), loaded.Slots.Plain())
	})

	t.Run("Isolation", func(t *testing.T) {
		state := domain.NewDialogState(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.Slots.Merge("severity", domain.Int(1))
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, loaded.Slots.Has("severity"), "mutating a saved state must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewDialogState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewDialogState(id1))
		_ = store.Save(ctx, id2, domain.NewDialogState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
