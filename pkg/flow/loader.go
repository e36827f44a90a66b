package flow

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/lexicon"
)

//go:embed flows/*.yaml
var builtin embed.FS

// Set is a validated collection of flow definitions, one per domain.
type Set struct {
	defs map[domain.Domain]*Definition
}

// Builtin loads the embedded flow tables.
func Builtin() (*Set, error) {
	sub, err := fs.Sub(builtin, "flows")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// MustBuiltin is Builtin for package initialization and tests.
func MustBuiltin() *Set {
	s, err := Builtin()
	if err != nil {
		panic(err)
	}
	return s
}

// LoadDir loads every *.yaml file in dir.
func LoadDir(dir string) (*Set, error) {
	return Load(os.DirFS(dir))
}

// Load decodes every *.yaml / *.yml file at the root of fsys and validates the result.
// Every known domain must be defined exactly once.
func Load(fsys fs.FS) (*Set, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read flow tables: %w", err)
	}

	set := &Set{defs: make(map[domain.Domain]*Definition)}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := set.defs[def.Domain]; dup {
			return nil, fmt.Errorf("%w: domain %s defined twice", domain.ErrInvalidFlow, def.Domain)
		}
		set.defs[def.Domain] = def
	}

	var missing []string
	for _, d := range domain.All() {
		if _, ok := set.defs[d]; !ok {
			missing = append(missing, d.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: no flow table for %s", domain.ErrInvalidFlow, strings.Join(missing, ", "))
	}
	return set, nil
}

// Parse decodes and validates a single flow table.
func Parse(data []byte) (*Definition, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFlow, err)
	}

	var def Definition
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := md.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFlow, err)
	}
	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Get returns the definition for d.
func (s *Set) Get(d domain.Domain) (*Definition, bool) {
	def, ok := s.defs[d]
	return def, ok
}

// All returns the definitions in domain.All order.
func (s *Set) All() []*Definition {
	out := make([]*Definition, 0, len(s.defs))
	for _, d := range domain.All() {
		if def, ok := s.defs[d]; ok {
			out = append(out, def)
		}
	}
	return out
}

// DomainForTag maps a classifier tag to the domain whose intent group contains it.
func (s *Set) DomainForTag(tag string) (domain.Domain, bool) {
	for _, def := range s.All() {
		for _, in := range def.Intents {
			if in == tag {
				return def.Domain, true
			}
		}
	}
	return domain.None, false
}

// DomainForKeywords returns the first domain whose keyword triggers match the
// synonym-expanded text. Keywords match as substrings, so "itch" covers
// "itchiness".
func (s *Set) DomainForKeywords(expanded string) (domain.Domain, bool) {
	for _, def := range s.All() {
		if lexicon.ContainsSubstring(expanded, def.Keywords) {
			return def.Domain, true
		}
	}
	return domain.None, false
}

// Tags returns every intent tag claimed by a flow, sorted.
func (s *Set) Tags() []string {
	var tags []string
	for _, def := range s.defs {
		tags = append(tags, def.Intents...)
	}
	sort.Strings(tags)
	return tags
}

// errorList aggregates validation problems into one error.
type errorList []string

func (l errorList) err() error {
	if len(l) == 0 {
		return nil
	}
	return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidFlow, len(l), strings.Join(l, "\n- "))
}
