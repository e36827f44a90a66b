package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	headache := Headache
	none := None
	askSeverity := "ask_severity"
	empty := ""

	tests := []struct {
		name     string
		old      *DialogState
		new      *DialogState
		wantDiff *StateDiff
	}{
		{
			name: "initial load",
			old:  nil,
			new: &DialogState{
				SessionID:    "s1",
				ActiveDomain: Headache,
				Stage:        "ask_severity",
				Slots:        Slots{"location": List("front")},
			},
			wantDiff: &StateDiff{
				SessionID:    "s1",
				ActiveDomain: &headache,
				Stage:        &askSeverity,
				Slots:        map[string]any{"location": []string{"front"}},
			},
		},
		{
			name: "no change",
			old:  &DialogState{SessionID: "s1", ActiveDomain: Headache, Stage: "ask_severity", Slots: Slots{"severity": Int(7)}},
			new:  &DialogState{SessionID: "s1", ActiveDomain: Headache, Stage: "ask_severity", Slots: Slots{"severity": Int(7)}},
		},
		{
			name: "stage advance with new slot",
			old:  &DialogState{SessionID: "s1", ActiveDomain: Headache, Stage: "ask_location", Slots: Slots{}},
			new:  &DialogState{SessionID: "s1", ActiveDomain: Headache, Stage: "ask_severity", Slots: Slots{"location": List("front")}},
			wantDiff: &StateDiff{
				SessionID: "s1",
				Stage:     &askSeverity,
				Slots:     map[string]any{"location": []string{"front"}},
			},
		},
		{
			name: "reset after summary deletes slots",
			old:  &DialogState{SessionID: "s1", ActiveDomain: Headache, Stage: "ask_assoc", Slots: Slots{"severity": Int(7)}},
			new:  &DialogState{SessionID: "s1", Slots: Slots{}},
			wantDiff: &StateDiff{
				SessionID:    "s1",
				ActiveDomain: &none,
				Stage:        &empty,
				Slots:        map[string]any{"severity": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			assert.Equal(t, tt.wantDiff, got)
		})
	}
}

func TestDiff_JSONOmitsUnchanged(t *testing.T) {
	old := &DialogState{SessionID: "s1", ActiveDomain: Fever, Stage: "ask_duration", Slots: Slots{}}
	cur := old.Snapshot()
	cur.Slots.Merge("duration", String("2 days"))

	b, err := json.Marshal(Diff(old, cur))
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s1","slots":{"duration":"2 days"}}`, string(b))
}
