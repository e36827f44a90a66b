// Package classifier provides intent classifiers: a corpus pattern matcher
// that needs no model, LLM-backed classifiers, and an LRU cache decorator.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
)

// Classifier maps an utterance to a tag with a confidence in [0,1].
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (domain.Classification, error)
	Name() string
}

// Func adapts a function to Classifier, mostly for tests.
type Func func(ctx context.Context, utterance string) (domain.Classification, error)

func (f Func) Classify(ctx context.Context, u string) (domain.Classification, error) { return f(ctx, u) }
func (f Func) Name() string                                                          { return "func" }

// instructions is the shared prompt for LLM-backed classifiers.
func instructions(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return "You classify short patient messages for a symptom triage assistant. " +
		"Choose the single best tag from this list: " + strings.Join(sorted, ", ") + ". " +
		`Answer with JSON only, shaped as {"tag": "<tag>", "confidence": <number between 0 and 1>}. ` +
		`If nothing fits, answer {"tag": "general", "confidence": 0.0}.`
}

// parseReply decodes an LLM JSON answer, tolerating code fences.
func parseReply(text string) (domain.Classification, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var out domain.Classification
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: unparsable reply: %v", domain.ErrClassifierUnavailable, err)
	}
	if out.Tag == "" {
		return domain.Classification{}, fmt.Errorf("%w: reply has no tag", domain.ErrClassifierUnavailable)
	}
	out.Confidence = min(max(out.Confidence, 0), 1)
	return out, nil
}
