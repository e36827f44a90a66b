package domain

import "time"

// DialogState is the mutable record of one conversation.
// Stage is empty exactly when ActiveDomain is None.
type DialogState struct {
	SessionID    string    `json:"session_id"`
	ActiveDomain Domain    `json:"active_domain"`
	Stage        string    `json:"stage,omitempty"`
	Slots        Slots     `json:"slots"`
	Turns        int       `json:"turns"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewDialogState creates an idle state for a session.
func NewDialogState(sessionID string) *DialogState {
	return &DialogState{
		SessionID: sessionID,
		Slots:     make(Slots),
	}
}

// Active reports whether a flow currently owns the conversation.
func (s *DialogState) Active() bool {
	return s.ActiveDomain != None
}

// Reset returns the state to idle, discarding any slots.
func (s *DialogState) Reset() {
	s.ActiveDomain = None
	s.Stage = ""
	s.Slots = make(Slots)
}

// Begin hands the conversation to a domain at its first stage with empty slots.
func (s *DialogState) Begin(d Domain, stage string) {
	s.Reset()
	s.ActiveDomain = d
	s.Stage = stage
}

// Snapshot returns a deep copy safe to hand to other goroutines or encoders.
func (s *DialogState) Snapshot() *DialogState {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Slots == nil {
		cp.Slots = make(Slots)
	} else {
		cp.Slots = s.Slots.Clone()
	}
	return &cp
}
