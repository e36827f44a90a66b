package ports_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
)

// jsonStore keeps states as encoded JSON to mimic a serializing backend.
type jsonStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *jsonStore) Save(_ context.Context, sessionID string, state *domain.DialogState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[sessionID] = b
	return nil
}

func (m *jsonStore) Load(_ context.Context, sessionID string) (*domain.DialogState, error) {
	m.mu.Lock()
	b, ok := m.data[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var st domain.DialogState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *jsonStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *jsonStore) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, &jsonStore{})
}

func TestHandoffSinkFunc(t *testing.T) {
	var got *domain.Handoff
	sink := ports.HandoffSinkFunc(func(_ context.Context, h *domain.Handoff) error {
		got = h
		return nil
	})

	h := &domain.Handoff{SessionID: "s1", Domain: domain.Fever, Summary: "done"}
	require.NoError(t, sink.Deliver(context.Background(), h))
	assert.Same(t, h, got)
}
