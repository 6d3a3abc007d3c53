// Package config loads run settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Price is the cost of a model per million tokens, in USD.
type Price struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// DefaultPricing lists known models. Lookup is by longest prefix so dated
// model versions resolve to their family.
var DefaultPricing = map[string]Price{
	"gemini-2.5-flash-lite": {Input: 0.10, Output: 0.40},
	"gemini-2.5-flash":      {Input: 0.30, Output: 2.50},
	"gemini-2.5-pro":        {Input: 1.25, Output: 10.00},
	"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},
}

// Config holds everything a run needs besides its input.
type Config struct {
	APIKey        string
	Model         string
	FallbackModel string

	// CheapModels are the tiers allowed to fall back to FallbackModel once
	// their retries are exhausted.
	CheapModels []string

	ChunkTokens       int
	ChunkOverlapLines int
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestTimeout    time.Duration
	MaxOutputTokens   int

	LogLevel string
	Pricing  map[string]Price
}

// Default returns the built-in settings.
func Default() Config {
	pricing := make(map[string]Price, len(DefaultPricing))
	for k, v := range DefaultPricing {
		pricing[k] = v
	}
	return Config{
		Model:             "gemini-2.5-flash",
		FallbackModel:     "gemini-2.5-pro",
		CheapModels:       []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash"},
		ChunkTokens:       25000,
		ChunkOverlapLines: 5,
		MaxRetries:        5,
		RetryBaseDelay:    5 * time.Second,
		RequestTimeout:    20 * time.Minute,
		MaxOutputTokens:   65536,
		LogLevel:          "info",
		Pricing:           pricing,
	}
}

// Load reads envFile (if it exists) into the process environment and then
// builds a Config from the defaults and environment overrides. An empty
// envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for overrides.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	cfg.APIKey = firstNonEmpty(getenv("GEMINI_API_KEY"), getenv("GOOGLE_API_KEY"))

	if v := getenv("STATEMENT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := getenv("STATEMENT_FALLBACK_MODEL"); v != "" {
		cfg.FallbackModel = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"STATEMENT_CHUNK_TOKENS", &cfg.ChunkTokens},
		{"STATEMENT_CHUNK_OVERLAP", &cfg.ChunkOverlapLines},
		{"STATEMENT_MAX_RETRIES", &cfg.MaxRetries},
		{"STATEMENT_MAX_OUTPUT_TOKENS", &cfg.MaxOutputTokens},
	}
	for _, f := range ints {
		v := getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid %s %q: must be a non-negative integer", f.key, v)
		}
		*f.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"STATEMENT_RETRY_BASE_DELAY", &cfg.RetryBaseDelay},
		{"STATEMENT_REQUEST_TIMEOUT", &cfg.RequestTimeout},
	}
	for _, f := range durations {
		v := getenv(f.key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", f.key, v, err)
		}
		*f.dst = d
	}

	if cfg.ChunkTokens == 0 {
		return Config{}, fmt.Errorf("invalid STATEMENT_CHUNK_TOKENS: must be positive")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}
	return cfg, nil
}

// LoadPricing merges a YAML price list into cfg.Pricing:
//
//	gemini-2.5-flash:
//	  input: 0.30
//	  output: 2.50
func (c *Config) LoadPricing(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading pricing file: %w", err)
	}
	var prices map[string]Price
	if err := yaml.Unmarshal(data, &prices); err != nil {
		return fmt.Errorf("parsing pricing file %s: %w", path, err)
	}
	if c.Pricing == nil {
		c.Pricing = map[string]Price{}
	}
	for k, v := range prices {
		c.Pricing[k] = v
	}
	return nil
}

// PriceFor returns the price of model, matching the longest known prefix.
func (c Config) PriceFor(model string) (Price, bool) {
	best := ""
	for name := range c.Pricing {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return Price{}, false
	}
	return c.Pricing[best], true
}

// IsCheap reports whether model may fall back to the stronger tier.
func (c Config) IsCheap(model string) bool {
	for _, m := range c.CheapModels {
		if m == model {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
