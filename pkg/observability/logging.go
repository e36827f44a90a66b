package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/triage/pkg/domain"
)

// LogHooks writes one structured audit line per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowStart: func(ctx context.Context, e *domain.FlowEvent) {
			logger.InfoContext(ctx, "flow_start", "session_id", e.SessionID, "domain", e.Domain, "stage", e.Stage)
		},
		OnStageAdvance: func(ctx context.Context, e *domain.FlowEvent) {
			logger.DebugContext(ctx, "stage_advance", "session_id", e.SessionID, "domain", e.Domain, "from", e.From, "stage", e.Stage)
		},
		OnFlowSummary: func(ctx context.Context, e *domain.FlowEvent) {
			logger.InfoContext(ctx, "flow_summary", "session_id", e.SessionID, "domain", e.Domain, "from", e.From)
		},
		OnClassify: func(ctx context.Context, e *domain.ClassifyEvent) {
			attrs := []any{"session_id", e.SessionID, "classifier", e.Classifier,
				"tag", e.Result.Tag, "confidence", e.Result.Confidence}
			if e.Err != nil {
				attrs = append(attrs, "fallback", e.Fallback, "err", e.Err)
				logger.WarnContext(ctx, "classify", attrs...)
				return
			}
			logger.DebugContext(ctx, "classify", attrs...)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn", "session_id", e.SessionID, "kind", e.Kind, "domain", e.Domain, "duration", e.Duration)
		},
	}
}
