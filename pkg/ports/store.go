package ports

import (
	"context"

	"github.com/aretw0/triage/pkg/domain"
)

// StateStore persists dialog state per session so a conversation can span
// processes and replicas.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.DialogState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.DialogState, error)

	// Delete removes the state for a given session ID. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of stored sessions in no particular order.
	List(ctx context.Context) ([]string, error)
}
