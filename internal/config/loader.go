package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"tts": {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Interview
	if cfg.Interview.Duration < 0 {
		errs = append(errs, fmt.Errorf("interview.duration must not be negative, got %v", cfg.Interview.Duration.Std()))
	}
	if cfg.Interview.CountdownTicks < 0 {
		errs = append(errs, fmt.Errorf("interview.countdown_ticks must not be negative, got %d", cfg.Interview.CountdownTicks))
	}
	if cfg.Interview.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("interview.max_retries must not be negative, got %d", cfg.Interview.MaxRetries))
	}
	if cfg.Interview.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("interview.retry_delay must not be negative, got %v", cfg.Interview.RetryDelay.Std()))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Provider availability warnings
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; interview sessions cannot generate questions")
	}

	// TTS key pool
	if cfg.Providers.TTS.Name != "" {
		if len(cfg.Providers.TTS.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("providers.tts.api_keys must list at least one key when a TTS provider is configured"))
		}
		if cfg.Providers.TTS.VoiceID == "" {
			errs = append(errs, fmt.Errorf("providers.tts.voice_id is required when a TTS provider is configured"))
		}
	}
	if s := cfg.Providers.TTS.Stability; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("providers.tts.stability %.2f is out of range [0, 1]", s))
	}
	if s := cfg.Providers.TTS.SimilarityBoost; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("providers.tts.similarity_boost %.2f is out of range [0, 1]", s))
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; conversation records will be kept in memory only")
	}

	// Alignment
	if cfg.Alignment.Matcher != "" && !cfg.Alignment.Matcher.IsValid() {
		errs = append(errs, fmt.Errorf("alignment.matcher %q is invalid; valid values: keyword, fuzzy", cfg.Alignment.Matcher))
	}
	if ft := cfg.Alignment.FuzzyThreshold; ft < 0 || ft > 1 {
		errs = append(errs, fmt.Errorf("alignment.fuzzy_threshold %.2f is out of range [0, 1]", ft))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
