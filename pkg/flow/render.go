package flow

import (
	"fmt"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
)

// MaxModelInput caps the handoff text fed to downstream models, in runes.
const MaxModelInput = 2000

// Render formats a slot for display, substituting the placeholder when absent.
func (s SlotSpec) Render(slots domain.Slots) string {
	v, ok := slots.Get(s.Key)
	if !ok {
		return s.Missing
	}
	text := s.plain(v)
	if s.Format != "" {
		return fmt.Sprintf(s.Format, text)
	}
	return text
}

func (s SlotSpec) plain(v domain.Value) string {
	if b, ok := v.Bool(); ok {
		if b {
			return s.True
		}
		return s.False
	}
	return v.String()
}

func renderSummary(def *Definition, slots domain.Slots) (string, error) {
	data := make(map[string]string, len(def.Slots))
	for _, s := range def.Slots {
		data[s.Key] = s.Render(slots)
	}

	var b strings.Builder
	if err := def.summary.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s summary: %w", def.Domain, err)
	}
	if def.Disclaimer != "" {
		b.WriteString(" ")
		b.WriteString(def.Disclaimer)
	}
	return b.String(), nil
}

// ModelInput condenses the captured slots and the last utterance into the
// text handed to downstream prediction models.
func ModelInput(def *Definition, slots domain.Slots, latest string) string {
	parts := []string{fmt.Sprintf("Patient reporting %s symptoms.", def.Domain.Label())}
	for _, s := range def.Slots {
		if s.Label == "" {
			continue
		}
		v, ok := slots.Get(s.Key)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s.", s.Label, s.plain(v)))
	}
	if latest = strings.TrimSpace(latest); latest != "" {
		parts = append(parts, "Latest user input: "+strings.Join(strings.Fields(latest), " "))
	}
	return truncate(strings.Join(parts, " "), MaxModelInput)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
