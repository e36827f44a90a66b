package classifier

import (
	"context"

	"github.com/aretw0/triage/pkg/corpus"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/lexicon"
)

const (
	// PatternConfidence is reported for any corpus pattern hit.
	PatternConfidence = 0.8
	// FallbackTag and FallbackConfidence are reported when no pattern matches.
	FallbackTag        = "general"
	FallbackConfidence = 0.5
)

// Pattern classifies by matching corpus patterns against the utterance.
// The first entry (in corpus order) with a matching pattern wins. Patterns
// match as plain substrings, so "vomit" also covers "vomiting".
type Pattern struct {
	entries []corpus.Entry
}

// NewPattern builds a pattern classifier over c.
func NewPattern(c *corpus.Corpus) *Pattern {
	entries := c.Entries()
	for i := range entries {
		norm := make([]string, 0, len(entries[i].Patterns))
		for _, p := range entries[i].Patterns {
			if p = lexicon.Normalize(p); p != "" {
				norm = append(norm, p)
			}
		}
		entries[i].Patterns = norm
	}
	return &Pattern{entries: entries}
}

func (p *Pattern) Name() string { return "pattern" }

// Classify never fails.
func (p *Pattern) Classify(_ context.Context, utterance string) (domain.Classification, error) {
	text := lexicon.Normalize(utterance)
	for _, e := range p.entries {
		if lexicon.ContainsSubstring(text, e.Patterns) {
			return domain.Classification{Tag: e.Tag, Confidence: PatternConfidence}, nil
		}
	}
	return domain.Classification{Tag: FallbackTag, Confidence: FallbackConfidence}, nil
}
