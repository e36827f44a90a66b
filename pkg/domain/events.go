package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFlowStart    EventType = "flow_start"
	EventStageAdvance EventType = "stage_advance"
	EventFlowSummary  EventType = "flow_summary"
	EventClassify     EventType = "classify"
	EventTurn         EventType = "turn"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// FlowEvent reports a flow starting, moving between stages, or finishing.
type FlowEvent struct {
	EventBase
	Domain Domain `json:"domain"`
	From   string `json:"from,omitempty"`
	Stage  string `json:"stage"`
}

// ClassifyEvent reports a classifier call made by the router.
type ClassifyEvent struct {
	EventBase
	Classifier string         `json:"classifier"`
	Result     Classification `json:"result"`
	Fallback   bool           `json:"fallback,omitempty"`
	Err        error          `json:"-"`
}

// TurnEvent reports the outcome of one handled message.
type TurnEvent struct {
	EventBase
	Kind     ReplyKind     `json:"kind"`
	Domain   Domain        `json:"domain"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability. Nil fields are skipped.
type LifecycleHooks struct {
	OnFlowStart    func(context.Context, *FlowEvent)
	OnStageAdvance func(context.Context, *FlowEvent)
	OnFlowSummary  func(context.Context, *FlowEvent)
	OnClassify     func(context.Context, *ClassifyEvent)
	OnTurn         func(context.Context, *TurnEvent)
}

func (h *LifecycleHooks) FlowStart(ctx context.Context, e *FlowEvent) {
	if h != nil && h.OnFlowStart != nil {
		h.OnFlowStart(ctx, e)
	}
}

func (h *LifecycleHooks) StageAdvance(ctx context.Context, e *FlowEvent) {
	if h != nil && h.OnStageAdvance != nil {
		h.OnStageAdvance(ctx, e)
	}
}

func (h *LifecycleHooks) FlowSummary(ctx context.Context, e *FlowEvent) {
	if h != nil && h.OnFlowSummary != nil {
		h.OnFlowSummary(ctx, e)
	}
}

func (h *LifecycleHooks) Classify(ctx context.Context, e *ClassifyEvent) {
	if h != nil && h.OnClassify != nil {
		h.OnClassify(ctx, e)
	}
}

func (h *LifecycleHooks) Turn(ctx context.Context, e *TurnEvent) {
	if h != nil && h.OnTurn != nil {
		h.OnTurn(ctx, e)
	}
}

// Merge chains two hook sets; a's callbacks run before b's.
func (h LifecycleHooks) Merge(b LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnFlowStart:    chain(h.OnFlowStart, b.OnFlowStart),
		OnStageAdvance: chain(h.OnStageAdvance, b.OnStageAdvance),
		OnFlowSummary:  chain(h.OnFlowSummary, b.OnFlowSummary),
		OnClassify:     chain(h.OnClassify, b.OnClassify),
		OnTurn:         chain(h.OnTurn, b.OnTurn),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
