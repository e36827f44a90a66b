package ports

import (
	"context"

	"github.com/aretw0/triage/pkg/domain"
)

// HandoffSink receives the structured record produced when a flow reaches its
// summary, for downstream classifiers or clinician review.
type HandoffSink interface {
	Deliver(ctx context.Context, h *domain.Handoff) error
}

// HandoffSinkFunc adapts a function to HandoffSink.
type HandoffSinkFunc func(ctx context.Context, h *domain.Handoff) error

func (f HandoffSinkFunc) Deliver(ctx context.Context, h *domain.Handoff) error { return f(ctx, h) }
