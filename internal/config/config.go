// Package config loads process configuration for the triage binary.
//
// Sources are applied in order: built-in defaults, an optional YAML file,
// a .env file in the working directory, TRIAGE_* environment variables.
// Command-line flags are applied last by the caller.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/triage/internal/logging"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Classifier kinds.
const (
	ClassifierPattern = "pattern"
	ClassifierOpenAI  = "openai"
	ClassifierGemini  = "gemini"
)

// Handoff drivers.
const (
	HandoffNone     = ""
	HandoffPostgres = "postgres"
	HandoffSQLite   = "sqlite"
)

// Config is the complete process configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Handoff    HandoffConfig    `yaml:"handoff"`
	Corpus     PathConfig       `yaml:"corpus"`
	Flows      FlowsConfig      `yaml:"flows"`
	Lexicon    PathConfig       `yaml:"lexicon"`
	Router     RouterConfig     `yaml:"router"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MetricsAddr serves /metrics on a separate listener when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	Kind  string      `yaml:"kind"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
	// EncryptionKey is a hex-encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	Lock          bool     `yaml:"lock"`
	// RedactSlots lists slot key patterns masked before state is persisted.
	RedactSlots []string `yaml:"redact_slots"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type ClassifierConfig struct {
	Kind      string  `yaml:"kind"`
	Model     string  `yaml:"model"`
	Threshold float64 `yaml:"threshold"`
	CacheSize int     `yaml:"cache_size"`
	APIKey    string  `yaml:"api_key"`
}

type HandoffConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	NotifyChannel string `yaml:"notify_channel"`
}

type PathConfig struct {
	Path string `yaml:"path"`
}

type FlowsConfig struct {
	Dir string `yaml:"dir"`
}

type RouterConfig struct {
	Greetings []string `yaml:"greetings"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: logging.FormatText},
		Store: StoreConfig{
			Kind: StoreMemory,
			Path: ".triage/sessions",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "triage:session:",
			},
		},
		Classifier: ClassifierConfig{
			Kind:      ClassifierPattern,
			Threshold: 0.75,
			CacheSize: 1024,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), a .env file if present, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}

	str("TRIAGE_SERVER_ADDR", &c.Server.Addr)
	str("TRIAGE_METRICS_ADDR", &c.Server.MetricsAddr)
	str("TRIAGE_LOG_LEVEL", &c.Log.Level)
	str("TRIAGE_LOG_FORMAT", &c.Log.Format)
	str("TRIAGE_STORE_KIND", &c.Store.Kind)
	str("TRIAGE_STORE_PATH", &c.Store.Path)
	str("TRIAGE_REDIS_ADDR", &c.Store.Redis.Addr)
	str("TRIAGE_REDIS_PASSWORD", &c.Store.Redis.Password)
	str("TRIAGE_REDIS_PREFIX", &c.Store.Redis.Prefix)
	str("TRIAGE_ENCRYPTION_KEY", &c.Store.EncryptionKey)
	list("TRIAGE_ENCRYPTION_FALLBACK_KEYS", &c.Store.FallbackKeys)
	list("TRIAGE_REDACT_SLOTS", &c.Store.RedactSlots)
	str("TRIAGE_CLASSIFIER", &c.Classifier.Kind)
	str("TRIAGE_CLASSIFIER_MODEL", &c.Classifier.Model)
	str("TRIAGE_CLASSIFIER_API_KEY", &c.Classifier.APIKey)
	str("TRIAGE_HANDOFF_DRIVER", &c.Handoff.Driver)
	str("TRIAGE_HANDOFF_DSN", &c.Handoff.DSN)
	str("TRIAGE_HANDOFF_NOTIFY", &c.Handoff.NotifyChannel)
	str("TRIAGE_CORPUS_PATH", &c.Corpus.Path)
	str("TRIAGE_FLOWS_DIR", &c.Flows.Dir)
	str("TRIAGE_LEXICON_PATH", &c.Lexicon.Path)
	list("TRIAGE_GREETINGS", &c.Router.Greetings)

	if v, ok := lookup("TRIAGE_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_REDIS_DB: %w", err)
		}
		c.Store.Redis.DB = n
	}
	if v, ok := lookup("TRIAGE_REDIS_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_REDIS_TTL: %w", err)
		}
		c.Store.Redis.TTL = d
	}
	if v, ok := lookup("TRIAGE_STORE_LOCK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_STORE_LOCK: %w", err)
		}
		c.Store.Lock = b
	}
	if v, ok := lookup("TRIAGE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRIAGE_THRESHOLD: %w", err)
		}
		c.Classifier.Threshold = f
	}
	if v, ok := lookup("TRIAGE_CLASSIFIER_CACHE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_CLASSIFIER_CACHE: %w", err)
		}
		c.Classifier.CacheSize = n
	}

	// Provider-native key variables are honored when no explicit key is set.
	if c.Classifier.APIKey == "" {
		switch c.Classifier.Kind {
		case ClassifierOpenAI:
			str("OPENAI_API_KEY", &c.Classifier.APIKey)
		case ClassifierGemini:
			str("GEMINI_API_KEY", &c.Classifier.APIKey)
			if c.Classifier.APIKey == "" {
				str("GOOGLE_API_KEY", &c.Classifier.APIKey)
			}
		}
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch c.Store.Kind {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind: unknown store %q", c.Store.Kind))
	}
	if c.Store.Lock && c.Store.Kind != StoreRedis {
		errs = append(errs, errors.New("store.lock requires the redis store"))
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}

	switch c.Classifier.Kind {
	case ClassifierPattern:
	case ClassifierOpenAI, ClassifierGemini:
		if c.Classifier.APIKey == "" {
			errs = append(errs, fmt.Errorf("classifier.api_key is required for the %s classifier", c.Classifier.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("classifier.kind: unknown classifier %q", c.Classifier.Kind))
	}
	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("classifier.threshold must be within [0,1], got %v", c.Classifier.Threshold))
	}
	if c.Classifier.CacheSize < 0 {
		errs = append(errs, errors.New("classifier.cache_size must not be negative"))
	}

	switch c.Handoff.Driver {
	case HandoffNone:
	case HandoffPostgres, HandoffSQLite:
		if c.Handoff.DSN == "" {
			errs = append(errs, fmt.Errorf("handoff.dsn is required for the %s driver", c.Handoff.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("handoff.driver: unknown driver %q", c.Handoff.Driver))
	}
	if c.Handoff.NotifyChannel != "" && c.Handoff.Driver != HandoffPostgres {
		errs = append(errs, errors.New("handoff.notify_channel requires the postgres driver"))
	}

	return errors.Join(errs...)
}

// EncryptionKeys decodes the active and fallback keys. A nil active key
// means encryption is disabled.
func (c *Config) EncryptionKeys() ([]byte, [][]byte, error) {
	if c.Store.EncryptionKey == "" {
		if len(c.Store.FallbackKeys) > 0 {
			return nil, nil, errors.New("store.fallback_keys set without store.encryption_key")
		}
		return nil, nil, nil
	}
	active, err := decodeKey(c.Store.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	var fallback [][]byte
	for i, k := range c.Store.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
