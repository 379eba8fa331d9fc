package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

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

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	// An empty document keeps the defaults.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
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
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Catalog
	if cfg.Catalog.Provider != "" && !cfg.Catalog.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("catalog.provider %q is invalid; valid values: elevenlabs, file", cfg.Catalog.Provider))
	}
	if cfg.Catalog.Provider == ProviderElevenLabs && cfg.Catalog.APIKey == "" {
		errs = append(errs, errors.New("catalog.api_key is required when catalog.provider is elevenlabs"))
	}
	if cfg.Catalog.Provider == ProviderFile && cfg.Catalog.SeedFile == "" {
		errs = append(errs, errors.New("catalog.seed_file is required when catalog.provider is file"))
	}
	if d, err := cfg.Catalog.Interval(); err != nil {
		errs = append(errs, fmt.Errorf("catalog.refresh_interval %q: %w", cfg.Catalog.RefreshInterval, err))
	} else if cfg.Catalog.RefreshInterval != "" && d <= 0 {
		errs = append(errs, fmt.Errorf("catalog.refresh_interval %q must be positive", cfg.Catalog.RefreshInterval))
	}

	// Cache availability
	if cfg.Catalog.PostgresDSN == "" {
		slog.Warn("catalog.postgres_dsn is empty; the catalog cache is disabled and a cold start needs a reachable provider")
	}

	// Matcher
	if cfg.Matcher.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("matcher.max_results %d must not be negative", cfg.Matcher.MaxResults))
	}

	return errors.Join(errs...)
}
