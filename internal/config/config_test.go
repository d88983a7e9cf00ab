package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vikram-capsitech/hirevox/internal/config"
)

func TestLogLevelIsValid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		level config.LogLevel
		want  bool
	}{
		{config.LogDebug, true},
		{config.LogInfo, true},
		{config.LogWarn, true},
		{config.LogError, true},
		{config.LogLevel("verbose"), false},
		{config.LogLevel(""), false},
	}
	for _, tc := range cases {
		if got := tc.level.IsValid(); got != tc.want {
			t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestMatcherKindIsValid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		kind config.MatcherKind
		want bool
	}{
		{config.MatcherKeyword, true},
		{config.MatcherFuzzy, true},
		{config.MatcherKind("semantic"), false},
		{config.MatcherKind(""), false},
	}
	for _, tc := range cases {
		if got := tc.kind.IsValid(); got != tc.want {
			t.Errorf("MatcherKind(%q).IsValid() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestConfig_FullSchema(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8443"
  log_level: debug
  tls:
    cert_file: /etc/hirevox/cert.pem
    key_file: /etc/hirevox/key.pem
interview:
  duration: 45m
  countdown_ticks: 5
  max_retries: 3
  retry_delay: 1s
  end_on_deadline: true
  status_poll_interval: 10s
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
    base_url: "https://llm.internal.example.com/v1"
    options:
      temperature: 0.4
  tts:
    name: elevenlabs
    api_keys: ["key-a", "key-b", "key-c"]
    voice_id: "21m00Tcm4TlvDq8ikWAM"
    model: eleven_flash_v2_5
    output_format: mp3_44100_128
    stability: 0.5
    similarity_boost: 0.75
storage:
  postgres_dsn: "postgres://hirevox:secret@db:5432/hirevox"
alignment:
  matcher: fuzzy
  fuzzy_threshold: 0.9
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8443" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.TLS == nil || cfg.Server.TLS.CertFile != "/etc/hirevox/cert.pem" {
		t.Errorf("tls = %+v", cfg.Server.TLS)
	}
	if got := cfg.Interview.Duration.Std(); got != 45*time.Minute {
		t.Errorf("interview.duration = %v, want 45m", got)
	}
	if got := cfg.Interview.RetryDelay.Std(); got != time.Second {
		t.Errorf("interview.retry_delay = %v, want 1s", got)
	}
	if !cfg.Interview.EndOnDeadline {
		t.Error("interview.end_on_deadline not set")
	}
	if cfg.Providers.LLM.Model != "gpt-4o" {
		t.Errorf("llm.model = %q", cfg.Providers.LLM.Model)
	}
	if len(cfg.Providers.TTS.APIKeys) != 3 {
		t.Errorf("tts.api_keys = %v", cfg.Providers.TTS.APIKeys)
	}
	if cfg.Alignment.Matcher != config.MatcherFuzzy || cfg.Alignment.FuzzyThreshold != 0.9 {
		t.Errorf("alignment = %+v", cfg.Alignment)
	}
}

func TestDuration_RejectsMalformedValues(t *testing.T) {
	t.Parallel()
	yaml := `
interview:
  duration: "a while"
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestConfig_UnknownFieldsRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: info
candidates:
  - name: someone
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}
