package extract

import (
	"sort"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/lexicon"
)

// Entry maps a canonical key to the phrases that select it.
type Entry struct {
	Key      string   `mapstructure:"key" yaml:"key" json:"key"`
	Variants []string `mapstructure:"variants" yaml:"variants" json:"variants"`
}

// Vocabulary returns the key of the first entry with a matching variant.
// Entries are tried in order, so more specific entries should come first.
func Vocabulary(entries []Entry) Func {
	return func(in Input) (domain.Value, bool) {
		for _, e := range entries {
			if lexicon.ContainsAny(in.Expanded, e.Variants) {
				return domain.String(e.Key), true
			}
		}
		return domain.Value{}, false
	}
}

// Flags returns every matching term as a sorted list.
func Flags(terms []string) Func {
	return func(in Input) (domain.Value, bool) {
		hits := lexicon.Hits(in.Expanded, terms)
		if len(hits) == 0 {
			return domain.Value{}, false
		}
		sort.Strings(hits)
		return domain.List(hits...), true
	}
}

// Polarity returns false when a negative phrase matches, true when a positive
// phrase matches, and no value otherwise. Negatives are tested first so that
// "not spreading" is not read as "spreading".
func Polarity(positive, negative []string) Func {
	return func(in Input) (domain.Value, bool) {
		if lexicon.ContainsAny(in.Expanded, negative) {
			return domain.Bool(false), true
		}
		if lexicon.ContainsAny(in.Expanded, positive) {
			return domain.Bool(true), true
		}
		return domain.Value{}, false
	}
}

// Affirmative and Negative are the phrase sets used by YesNo.
var (
	Affirmative = []string{"yes", "yeah", "yep", "yup", "affirmative", "i do", "i am", "have", "has"}
	Negative    = []string{"no", "nope", "nah", "negative", "don't", "do not", "haven't", "hasn't", "not"}
)

// YesNo distinguishes an explicit answer from no answer at all.
func YesNo(in Input) (domain.Value, bool) {
	return Polarity(Affirmative, Negative)(in)
}

// FreeText captures the whole utterance, if non-empty.
func FreeText(in Input) (domain.Value, bool) {
	if in.Original == "" {
		return domain.Value{}, false
	}
	return domain.String(in.Original), true
}
