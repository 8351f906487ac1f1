package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rcliao/agentcore/internal/model"
)

const (
	// FileName is the config file inside the config directory.
	FileName = "config.toml"

	v0 = 0

	// CurrentV is the currently supported config version.
	CurrentV = v0
)

var validStorage = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "redis": true}

var validEmbedding = map[string]bool{"": true, "ollama": true, "openai": true}

var validModel = map[string]bool{"": true, "anthropic": true}

// Validate checks value ranges and provider names.
func (c *Config) Validate() error {
	if c.Agent.ID == "" {
		return fmt.Errorf("%w: agent.id is required", model.ErrInvalidInput)
	}
	if !validStorage[c.Storage.Provider] {
		return fmt.Errorf("%w: unknown storage.provider %q", model.ErrInvalidInput, c.Storage.Provider)
	}
	if !validEmbedding[c.Embedding.Provider] {
		return fmt.Errorf("%w: unknown embedding.provider %q", model.ErrInvalidInput, c.Embedding.Provider)
	}
	if !validModel[c.Model.Provider] {
		return fmt.Errorf("%w: unknown model.provider %q", model.ErrInvalidInput, c.Model.Provider)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("%w: embedding.cache_size must be >= 0", model.ErrInvalidInput)
	}
	if c.Memory.MinConfidence < 0 || c.Memory.MinConfidence > 1 {
		return fmt.Errorf("%w: memory.min_confidence must be within [0,1]", model.ErrInvalidInput)
	}
	if c.Memory.LongTermLimit < 0 || c.Memory.RecentMessages < 0 || c.Memory.SummaryThreshold < 0 {
		return fmt.Errorf("%w: memory limits must be >= 0", model.ErrInvalidInput)
	}
	for key, s := range map[string]string{
		"composer.provider_timeout": c.Composer.ProviderTimeout,
		"composer.handler_timeout":  c.Composer.HandlerTimeout,
		"composer.turn_timeout":     c.Composer.TurnTimeout,
	} {
		if _, err := parseDuration(s); err != nil {
			return fmt.Errorf("%w: %s: %v", model.ErrInvalidInput, key, err)
		}
	}
	return nil
}

// ProviderTimeoutDuration returns the per-provider deadline, zero for none.
func (c ComposerConfig) ProviderTimeoutDuration() time.Duration {
	d, _ := parseDuration(c.ProviderTimeout)
	return d
}

// HandlerTimeoutDuration returns the per-handler deadline, zero for none.
func (c ComposerConfig) HandlerTimeoutDuration() time.Duration {
	d, _ := parseDuration(c.HandlerTimeout)
	return d
}

// TurnTimeoutDuration returns the whole-turn deadline, zero for none.
func (c ComposerConfig) TurnTimeoutDuration() time.Duration {
	d, _ := parseDuration(c.TurnTimeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("negative duration")
	}
	return d, nil
}

// ParseTOML decodes a config file body and fills unset fields with defaults.
func ParseTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("%w: unsupported config version %d", model.ErrInvalidInput, cfg.Version)
	}
	return cfg, nil
}

// LoadFile reads a config.toml. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseTOML(data)
}

// Save writes cfg as TOML to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
