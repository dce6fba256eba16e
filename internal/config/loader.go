package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known LLM provider names. Used by [Validate] to
// warn about unrecognised names, which are usually typos.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq",
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
	expandSecrets(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandSecrets resolves ${VAR} references in credential-bearing fields so
// secrets can live in the environment instead of the config file.
func expandSecrets(cfg *Config) {
	expand := func(s *string) {
		if strings.Contains(*s, "${") {
			*s = os.ExpandEnv(*s)
		}
	}
	expand(&cfg.Providers.LLM.APIKey)
	for i := range cfg.Providers.Fallbacks {
		expand(&cfg.Providers.Fallbacks[i].APIKey)
	}
	expand(&cfg.Session.PostgresDSN)
	expand(&cfg.Google.ClientID)
	expand(&cfg.Google.ClientSecret)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Providers
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; replies will always be the fallback apology")
	}
	validateProviderName("providers.llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.Fallbacks {
		prefix := fmt.Sprintf("providers.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		validateProviderName(prefix, fb.Name)
	}

	// Session
	if cfg.Session.Backend != "" && !cfg.Session.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("session.backend %q is invalid; valid values: memory, postgres", cfg.Session.Backend))
	}
	if cfg.Session.Backend == SessionPostgres && cfg.Session.PostgresDSN == "" {
		errs = append(errs, errors.New("session.postgres_dsn is required when session.backend is postgres"))
	}
	if cfg.Session.TTL < 0 {
		errs = append(errs, fmt.Errorf("session.ttl %v must not be negative", time.Duration(cfg.Session.TTL)))
	}

	// Scheduling
	if tz := cfg.Scheduling.DefaultTimezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduling.default_timezone %q is not a valid IANA zone", tz))
		}
	}

	// Google credentials
	g := cfg.Google
	partialOAuth := (g.ClientID != "" || g.ClientSecret != "" || g.RedirectURL != "") && !g.OAuthConfigured()
	if partialOAuth {
		errs = append(errs, errors.New("google oauth requires client_id, client_secret and redirect_url together"))
	}
	if !g.OAuthConfigured() && g.ServiceAccountFile == "" {
		slog.Warn("no google credentials configured; calendar event creation will be unavailable")
	}
	if g.OAuthConfigured() && g.ServiceAccountFile != "" {
		slog.Warn("both google oauth and a service account are configured; per-user tokens take precedence")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(key, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"key", key,
		"name", name,
		"known", ValidProviderNames,
	)
}
