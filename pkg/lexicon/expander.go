package lexicon

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SynonymGroup ties a source-language term to its target-language equivalents.
type SynonymGroup struct {
	Term        string   `yaml:"term"`
	Equivalents []string `yaml:"equivalents"`
}

// Expander appends cross-language synonyms found in the input so a single
// vocabulary matches both lexical forms. Its output is a matching aid only.
type Expander struct {
	groups []SynonymGroup
}

// NewExpander builds an expander over the given groups. Terms are normalized.
func NewExpander(groups []SynonymGroup) *Expander {
	e := &Expander{groups: make([]SynonymGroup, 0, len(groups))}
	for _, g := range groups {
		ng := SynonymGroup{Term: Normalize(g.Term)}
		for _, eq := range g.Equivalents {
			ng.Equivalents = append(ng.Equivalents, Normalize(eq))
		}
		e.groups = append(e.groups, ng)
	}
	return e
}

// Default returns the Arrernte/English expander.
func Default() *Expander {
	return NewExpander(ArrernteEnglish)
}

// LoadExpander reads synonym groups from a YAML list.
func LoadExpander(r io.Reader) (*Expander, error) {
	var groups []SynonymGroup
	if err := yaml.NewDecoder(r).Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode synonym table: %w", err)
	}
	for i, g := range groups {
		if strings.TrimSpace(g.Term) == "" {
			return nil, fmt.Errorf("synonym group %d: empty term", i)
		}
	}
	return NewExpander(groups), nil
}

// Expand returns the normalized text followed by every term and equivalent of
// each group that matched, sorted and deduplicated. Text with no matches is
// returned normalized and unchanged otherwise.
func (e *Expander) Expand(text string) string {
	norm := Normalize(text)
	if e == nil || len(e.groups) == 0 {
		return norm
	}

	extras := make(map[string]struct{})
	for _, g := range e.groups {
		if !Contains(norm, g.Term) && !ContainsAny(norm, g.Equivalents) {
			continue
		}
		extras[g.Term] = struct{}{}
		for _, eq := range g.Equivalents {
			extras[eq] = struct{}{}
		}
	}
	if len(extras) == 0 {
		return norm
	}

	words := make([]string, 0, len(extras))
	for w := range extras {
		words = append(words, w)
	}
	sort.Strings(words)
	return norm + " " + strings.Join(words, " ")
}

// ArrernteEnglish is the default synonym table.
var ArrernteEnglish = []SynonymGroup{
	{Term: "werte", Equivalents: []string{"hi", "hello", "hey"}},
	{Term: "anwerne", Equivalents: []string{"you", "your"}},
	{Term: "ayenge", Equivalents: []string{"i", "me", "my"}},
	{Term: "nhenhe", Equivalents: []string{"this", "here", "that"}},
	{Term: "arnterre", Equivalents: []string{"sick", "unwell", "ill"}},
	{Term: "atnerte", Equivalents: []string{"stomach", "belly", "abdomen", "tummy", "gut"}},
	{Term: "inwenge", Equivalents: []string{"chest"}},
	{Term: "arlenye", Equivalents: []string{"dry"}},
	{Term: "akngetyeme", Equivalents: []string{"phlegm", "mucus", "productive"}},
	{Term: "yenpe", Equivalents: []string{"urine", "pee"}},
	{Term: "akaltye", Equivalents: []string{"please"}},
	{Term: "arlke", Equivalents: []string{"okay", "ok"}},
	{Term: "arrule", Equivalents: []string{"thanks", "thank you"}},
	{Term: "aye", Equivalents: []string{"?", "question"}},
	{Term: "fever", Equivalents: []string{"fever", "temperature", "hot"}},
	{Term: "cough", Equivalents: []string{"cough", "coughing", "wheeze", "wheezing"}},
	{Term: "headache", Equivalents: []string{"headache", "migraine", "head pain", "pressure in head"}},
	{Term: "fatigue", Equivalents: []string{"tired", "fatigue", "exhausted", "drained", "weak"}},
	{Term: "stomach", Equivalents: []string{"stomach", "nausea", "nauseous", "vomit", "diarrhea", "bloated", "bloat"}},
	{Term: "breathless", Equivalents: []string{"shortness of breath", "breathless", "difficulty breathing", "trouble breathing"}},
}
