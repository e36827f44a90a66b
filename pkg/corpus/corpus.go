// Package corpus holds the canned-response corpus: tagged entries with the
// patterns used by the pattern classifier and the replies served for
// non-symptom tags.
package corpus

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/aretw0/triage/internal/logging"
)

//go:embed intents.json
var builtinIntents []byte

//go:embed schema.json
var schemaJSON []byte

// Entry is one tagged corpus item.
type Entry struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// Corpus is an ordered, read-only collection of entries. Safe for concurrent use.
type Corpus struct {
	entries []Entry
	byTag   map[string]int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Corpus.
type Option func(*config)

type config struct {
	logger *slog.Logger
	rng    *rand.Rand
}

// WithLogger reports skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSeed makes response selection reproducible.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// Builtin returns the embedded corpus.
func Builtin(opts ...Option) (*Corpus, error) {
	return Parse(builtinIntents, opts...)
}

// LoadFile reads a corpus from disk.
func LoadFile(path string, opts ...Option) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return Parse(data, opts...)
}

type rawEntry struct {
	Tag       *string         `json:"tag"`
	Intent    *string         `json:"intent"`
	Patterns  []string        `json:"patterns"`
	Text      []string        `json:"text"`
	Responses json.RawMessage `json:"responses"`
}

// Parse validates data against the corpus schema and decodes it.
// Entries may name their tag "tag" or "intent" and their patterns "patterns"
// or "text"; responses may be a list or a single string. Responses are not
// part of the schema, so an entry whose responses are neither is skipped on
// its own, as is an entry without a tag.
func Parse(data []byte, opts ...Option) (*Corpus, error) {
	cfg := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	var doc struct {
		Intents []rawEntry `json:"intents"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}

	c := &Corpus{byTag: make(map[string]int), rng: cfg.rng}
	for i, raw := range doc.Intents {
		tag := ""
		switch {
		case raw.Tag != nil:
			tag = *raw.Tag
		case raw.Intent != nil:
			tag = *raw.Intent
		}
		if strings.TrimSpace(tag) == "" {
			cfg.logger.Warn("skipping corpus entry without tag", "index", i)
			continue
		}

		patterns := raw.Patterns
		if patterns == nil {
			patterns = raw.Text
		}
		responses, err := decodeResponses(raw.Responses)
		if err != nil {
			cfg.logger.Warn("skipping corpus entry with bad responses", "tag", tag, "err", err)
			continue
		}

		if _, dup := c.byTag[tag]; dup {
			cfg.logger.Warn("duplicate corpus tag, keeping the first", "tag", tag)
			continue
		}
		c.byTag[tag] = len(c.entries)
		c.entries = append(c.entries, Entry{Tag: tag, Patterns: patterns, Responses: responses})
	}
	return c, nil
}

func decodeResponses(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func validate(data []byte) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to compile corpus schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("corpus validation error: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("- %s", e))
		}
		return fmt.Errorf("corpus validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// Entries returns the entries in corpus order.
func (c *Corpus) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Has reports whether tag has an entry.
func (c *Corpus) Has(tag string) bool {
	_, ok := c.byTag[tag]
	return ok
}

// Response picks one reply for tag at random. It reports false when the tag
// is unknown or has no responses.
func (c *Corpus) Response(tag string) (string, bool) {
	i, ok := c.byTag[tag]
	if !ok {
		return "", false
	}
	rs := c.entries[i].Responses
	if len(rs) == 0 {
		return "", false
	}
	return rs[c.intN(len(rs))], true
}

func (c *Corpus) intN(n int) int {
	if c.rng == nil {
		return rand.IntN(n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}
