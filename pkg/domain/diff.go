package domain

// StateDiff represents the changes between two dialog states.
// It is serialized to JSON for partial updates on websocket clients.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	ActiveDomain *Domain `json:"active_domain,omitempty"`
	Stage        *string `json:"stage,omitempty"`

	// Slots contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Slots map[string]any `json:"slots,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *DialogState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{SessionID: newState.SessionID}

	if oldState == nil || oldState.ActiveDomain != newState.ActiveDomain {
		d := newState.ActiveDomain
		diff.ActiveDomain = &d
	}
	if oldState == nil || oldState.Stage != newState.Stage {
		s := newState.Stage
		diff.Stage = &s
	}
	diff.Slots = diffSlots(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffSlots(old, new *DialogState) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Slots {
			delta[k] = v.Any()
		}
	} else {
		for k, newVal := range new.Slots {
			if oldVal, ok := old.Slots[k]; !ok || !oldVal.Equal(newVal) {
				delta[k] = newVal.Any()
			}
		}
		for k := range old.Slots {
			if _, ok := new.Slots[k]; !ok {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.ActiveDomain == nil && d.Stage == nil && len(d.Slots) == 0
}
