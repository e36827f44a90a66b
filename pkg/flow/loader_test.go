package flow_test

import (
	"testing"
	"testing/fstest"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_DefinesEveryDomain(t *testing.T) {
	set, err := flow.Builtin()
	require.NoError(t, err)

	for _, d := range domain.All() {
		def, ok := set.Get(d)
		require.True(t, ok, d.String())
		assert.Equal(t, flow.SummaryStage, def.StageIDs()[len(def.Stages)-1])
		assert.NotEmpty(t, def.First().Prompt)
	}
}

func TestBuiltin_StageOrders(t *testing.T) {
	set := flow.MustBuiltin()
	want := map[domain.Domain][]string{
		domain.Headache: {"ask_location", "ask_severity", "ask_duration", "ask_assoc", "summary"},
		domain.Cough:    {"ask_type", "ask_duration", "ask_assoc", "ask_sputum", "summary"},
		domain.Stomach:  {"ask_location", "ask_assoc", "ask_duration", "ask_trigger", "summary"},
		domain.Fatigue:  {"ask_sleep", "ask_pattern", "ask_duration", "ask_assoc", "summary"},
		domain.Skin:     {"ask_location", "ask_appearance", "ask_duration", "ask_itch", "ask_spread", "ask_triggers", "ask_systemic", "summary"},
		domain.General:  {"ask_category", "ask_location", "ask_severity", "ask_duration", "ask_assoc", "summary"},
	}
	for d, ids := range want {
		def, _ := set.Get(d)
		assert.Equal(t, ids, def.StageIDs(), d.String())
	}
}

func TestSet_DomainForTag(t *testing.T) {
	set := flow.MustBuiltin()

	cases := map[string]domain.Domain{
		"Symptom_Headache": domain.Headache,
		"Pain":             domain.Headache,
		"FeverFollowup":    domain.Fever,
		"Respiratory":      domain.Cough,
		"Digestive":        domain.Stomach,
		"GeneralWeakness":  domain.Fatigue,
		"Dermatology":      domain.Skin,
		"General_Followup": domain.General,
	}
	for tag, want := range cases {
		got, ok := set.DomainForTag(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, want, got, tag)
	}

	_, ok := set.DomainForTag("Greeting")
	assert.False(t, ok)
}

func TestSet_DomainForKeywords(t *testing.T) {
	set := flow.MustBuiltin()

	d, ok := set.DomainForKeywords("there are itchy spots on me")
	assert.True(t, ok)
	assert.Equal(t, domain.Skin, d)

	d, ok = set.DomainForKeywords("lots of blistering")
	assert.True(t, ok)
	assert.Equal(t, domain.Skin, d)

	_, ok = set.DomainForKeywords("my head hurts")
	assert.False(t, ok)
}

const minimal = `
domain: headache
intents: [Pain]
slots:
  - key: severity
    extractor: severity
    missing: unspecified severity
stages:
  - id: ask_severity
    requires: severity
    prompt: "How bad?"
  - id: summary
summary: "severity {{.severity}}"
`

func TestParse_Minimal(t *testing.T) {
	def, err := flow.Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, domain.Headache, def.Domain)

	st, ok := def.Stage("ask_severity")
	require.True(t, ok)
	assert.False(t, st.AskOnce())
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": `
domain: headache
colour: blue
stages: [{id: ask, prompt: "?"}, {id: summary}]
summary: "x"
`,
		"summary not last": `
domain: headache
stages: [{id: summary}, {id: ask, prompt: "?"}]
summary: "x"
`,
		"unknown required slot": `
domain: headache
stages: [{id: ask, prompt: "?", requires: ghost}, {id: summary}]
summary: "x"
`,
		"template references unknown slot": `
domain: headache
stages: [{id: ask, prompt: "?"}, {id: summary}]
summary: "{{.ghost}}"
`,
		"unknown domain": `
domain: sneeze
stages: [{id: ask, prompt: "?"}, {id: summary}]
summary: "x"
`,
		"boolean slot without texts": `
domain: headache
slots:
  - key: itch
    extractor: yes_no
    missing: none
stages: [{id: ask, prompt: "?"}, {id: summary}]
summary: "{{.itch}}"
`,
		"bound to unknown stage": `
domain: headache
slots:
  - key: where
    extractor: free_text
    bound: nowhere
    missing: none
stages: [{id: ask, prompt: "?"}, {id: summary}]
summary: "{{.where}}"
`,
		"missing prompt": `
domain: headache
stages: [{id: ask}, {id: summary}]
summary: "x"
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := flow.Parse([]byte(doc))
			assert.ErrorIs(t, err, domain.ErrInvalidFlow)
		})
	}
}

func TestLoad_RequiresEveryDomain(t *testing.T) {
	fsys := fstest.MapFS{"headache.yaml": {Data: []byte(minimal)}}
	_, err := flow.Load(fsys)
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
	assert.Contains(t, err.Error(), "fever")
}

func TestLoad_RejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte(minimal)},
		"b.yml":  {Data: []byte(minimal)},
	}
	_, err := flow.Load(fsys)
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
	assert.Contains(t, err.Error(), "twice")
}

func TestModelInput_Truncates(t *testing.T) {
	def, err := flow.Parse([]byte(minimal))
	require.NoError(t, err)

	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'a'
	}
	got := flow.ModelInput(def, domain.Slots{}, string(long))
	assert.Len(t, []rune(got), flow.MaxModelInput)
}
