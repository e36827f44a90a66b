package extract

import (
	"strings"

	"github.com/aretw0/triage/pkg/lexicon"
)

// Input is one user turn prepared for extraction.
type Input struct {
	// Original is the utterance as received, trimmed.
	Original string
	// Lower is the lowercased original.
	Lower string
	// Expanded is the normalized text with synonyms appended.
	Expanded string
}

// NewInput prepares text for extraction. A nil expander only normalizes.
func NewInput(text string, exp *lexicon.Expander) Input {
	trimmed := strings.TrimSpace(text)
	return Input{
		Original: trimmed,
		Lower:    strings.ToLower(trimmed),
		Expanded: exp.Expand(trimmed),
	}
}
