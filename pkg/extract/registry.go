package extract

import (
	"fmt"

	"github.com/aretw0/triage/pkg/domain"
)

// Extractor finds one slot value in a turn.
type Extractor interface {
	Extract(in Input) (domain.Value, bool)
}

// Func adapts a function to Extractor.
type Func func(in Input) (domain.Value, bool)

func (f Func) Extract(in Input) (domain.Value, bool) { return f(in) }

// Kind names an extractor family usable from flow tables.
type Kind string

const (
	KindDuration    Kind = "duration"
	KindSeverity    Kind = "severity"
	KindTemperature Kind = "temperature"
	KindVocabulary  Kind = "vocabulary"
	KindFlags       Kind = "flags"
	KindPolarity    Kind = "polarity"
	KindYesNo       Kind = "yes_no"
	KindFreeText    Kind = "free_text"
)

// Params configures an extractor. Only the fields relevant to Kind are read.
type Params struct {
	Kind       Kind     `mapstructure:"extractor" json:"extractor"`
	Vocabulary []Entry  `mapstructure:"vocabulary" json:"vocabulary,omitempty"`
	Terms      []string `mapstructure:"terms" json:"terms,omitempty"`
	Positive   []string `mapstructure:"positive" json:"positive,omitempty"`
	Negative   []string `mapstructure:"negative" json:"negative,omitempty"`
}

// ListValued reports whether the kind produces list values.
func (k Kind) ListValued() bool { return k == KindFlags }

// Build constructs the extractor described by p.
func Build(p Params) (Extractor, error) {
	switch p.Kind {
	case KindDuration:
		return Func(Duration), nil
	case KindSeverity:
		return Func(Severity), nil
	case KindTemperature:
		return Func(Temperature), nil
	case KindYesNo:
		return Func(YesNo), nil
	case KindFreeText:
		return Func(FreeText), nil
	case KindVocabulary:
		if len(p.Vocabulary) == 0 {
			return nil, fmt.Errorf("vocabulary extractor needs at least one entry")
		}
		for _, e := range p.Vocabulary {
			if e.Key == "" || len(e.Variants) == 0 {
				return nil, fmt.Errorf("vocabulary entry %q needs a key and variants", e.Key)
			}
		}
		return Vocabulary(p.Vocabulary), nil
	case KindFlags:
		if len(p.Terms) == 0 {
			return nil, fmt.Errorf("flags extractor needs terms")
		}
		return Flags(p.Terms), nil
	case KindPolarity:
		if len(p.Positive) == 0 || len(p.Negative) == 0 {
			return nil, fmt.Errorf("polarity extractor needs positive and negative phrases")
		}
		return Polarity(p.Positive, p.Negative), nil
	case "":
		return nil, fmt.Errorf("missing extractor kind")
	}
	return nil, fmt.Errorf("unknown extractor kind %q", p.Kind)
}
