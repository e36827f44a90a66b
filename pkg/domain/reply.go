package domain

import "time"

// Classification is the output of an intent classifier.
type Classification struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// ReplyKind tells transports and metrics which routing path produced a reply.
type ReplyKind string

const (
	ReplyPrompt   ReplyKind = "prompt"   // a flow question (opening, next stage or re-ask)
	ReplySummary  ReplyKind = "summary"  // terminal summary; state has been reset
	ReplyCanned   ReplyKind = "canned"   // corpus response for a non-symptom tag
	ReplyGreeting ReplyKind = "greeting" // greeting short-circuit
	ReplyReset    ReplyKind = "reset"    // explicit reset with no message
)

// Reply is the result of one conversational turn.
type Reply struct {
	Text    string       `json:"reply"`
	Kind    ReplyKind    `json:"kind"`
	Final   bool         `json:"is_final_message"`
	State   *DialogState `json:"state"`
	Handoff *Handoff     `json:"handoff,omitempty"`
}

// Handoff is the structured record emitted when a flow reaches its summary.
// ModelInput is the condensed text fed to downstream prediction models.
type Handoff struct {
	SessionID  string    `json:"session_id"`
	Domain     Domain    `json:"domain"`
	Slots      Slots     `json:"slots"`
	Summary    string    `json:"summary"`
	ModelInput string    `json:"model_input"`
	CreatedAt  time.Time `json:"created_at"`
}
