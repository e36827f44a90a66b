package flow

import (
	"text/template"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/extract"
)

// SummaryStage is the terminal stage id shared by every flow.
const SummaryStage = "summary"

// Definition is one domain's declarative flow table.
type Definition struct {
	Domain     domain.Domain `mapstructure:"domain" json:"domain"`
	Intents    []string      `mapstructure:"intents" json:"intents"`
	Keywords   []string      `mapstructure:"keywords" json:"keywords,omitempty"`
	Slots      []SlotSpec    `mapstructure:"slots" json:"slots"`
	Stages     []Stage       `mapstructure:"stages" json:"stages"`
	Summary    string        `mapstructure:"summary" json:"summary"`
	Disclaimer string        `mapstructure:"disclaimer" json:"disclaimer"`

	summary *template.Template
	index   map[string]int
}

// SlotSpec declares one extractable slot and how it is rendered.
type SlotSpec struct {
	Key            string `mapstructure:"key" json:"key"`
	extract.Params `mapstructure:",squash"`

	// Bound restricts extraction to turns answering this stage.
	Bound   string `mapstructure:"bound" json:"bound,omitempty"`
	Label   string `mapstructure:"label" json:"label,omitempty"`
	Missing string `mapstructure:"missing" json:"missing"`
	True    string `mapstructure:"true" json:"true,omitempty"`
	False   string `mapstructure:"false" json:"false,omitempty"`
	Format  string `mapstructure:"format" json:"format,omitempty"`

	extractor extract.Extractor
}

// Stage is one question in the ordered sequence.
type Stage struct {
	ID       string `mapstructure:"id" json:"id"`
	Requires string `mapstructure:"requires" json:"requires,omitempty"`
	Prompt   string `mapstructure:"prompt" json:"prompt,omitempty"`
	Reprompt string `mapstructure:"reprompt" json:"reprompt,omitempty"`
}

// AskOnce reports whether the stage advances on any reply.
func (s Stage) AskOnce() bool { return s.Requires == "" }

func (s Stage) reprompt() string {
	if s.Reprompt != "" {
		return s.Reprompt
	}
	return s.Prompt
}

// First returns the opening stage.
func (d *Definition) First() Stage { return d.Stages[0] }

// Stage looks up a stage by id.
func (d *Definition) Stage(id string) (Stage, bool) {
	i, ok := d.index[id]
	if !ok {
		return Stage{}, false
	}
	return d.Stages[i], true
}

// StageIDs returns the stage order.
func (d *Definition) StageIDs() []string {
	ids := make([]string, len(d.Stages))
	for i, s := range d.Stages {
		ids[i] = s.ID
	}
	return ids
}

// Slot looks up a slot spec by key.
func (d *Definition) Slot(key string) (SlotSpec, bool) {
	for _, s := range d.Slots {
		if s.Key == key {
			return s, true
		}
	}
	return SlotSpec{}, false
}
