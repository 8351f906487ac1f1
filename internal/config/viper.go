package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "AGENTCORE"

// InitViper creates a configured *viper.Viper. It registers defaults from
// NewDefaultConfig(), reads config.toml from configDir (or DefaultDir()),
// and binds AGENTCORE_ environment variables.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound with BindPFlag)
//  2. Environment variables (AGENTCORE_STORAGE_PROVIDER, AGENTCORE_MEMORY_MIN_CONFIDENCE, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if configDir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = d
	}
	v.Set("config_dir", configDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(configDir, defaultSQLiteFile))

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// DefaultDir returns ~/.agentcore.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".agentcore"), nil
}

// setViperDefaults registers defaults using dotted-key notation so that
// defaults.go stays the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("agent.id", d.Agent.ID)
	v.SetDefault("agent.name", d.Agent.Name)

	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.redis_addr", d.Storage.RedisAddr)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.small_model", d.Model.SmallModel)
	v.SetDefault("model.large_model", d.Model.LargeModel)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)
	v.SetDefault("model.temperature", d.Model.Temperature)

	v.SetDefault("memory.min_confidence", d.Memory.MinConfidence)
	v.SetDefault("memory.long_term_limit", d.Memory.LongTermLimit)
	v.SetDefault("memory.use_similarity", d.Memory.UseSimilarity)
	v.SetDefault("memory.min_similarity", d.Memory.MinSimilarity)
	v.SetDefault("memory.summary_threshold", d.Memory.SummaryThreshold)
	v.SetDefault("memory.recent_messages", d.Memory.RecentMessages)

	v.SetDefault("composer.provider_timeout", d.Composer.ProviderTimeout)
	v.SetDefault("composer.handler_timeout", d.Composer.HandlerTimeout)
	v.SetDefault("composer.turn_timeout", d.Composer.TurnTimeout)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
}

// Load materializes a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Agent: AgentConfig{
			ID:   v.GetString("agent.id"),
			Name: v.GetString("agent.name"),
		},
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			RedisAddr:   v.GetString("storage.redis_addr"),
			RedisPrefix: v.GetString("storage.redis_prefix"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			APIKey:     v.GetString("embedding.api_key"),
			CacheSize:  v.GetInt("embedding.cache_size"),
		},
		Model: ModelConfig{
			Provider:    v.GetString("model.provider"),
			APIKey:      v.GetString("model.api_key"),
			SmallModel:  v.GetString("model.small_model"),
			LargeModel:  v.GetString("model.large_model"),
			MaxTokens:   v.GetInt("model.max_tokens"),
			Temperature: v.GetFloat64("model.temperature"),
		},
		Memory: MemoryConfig{
			MinConfidence:    v.GetFloat64("memory.min_confidence"),
			LongTermLimit:    v.GetInt("memory.long_term_limit"),
			UseSimilarity:    v.GetBool("memory.use_similarity"),
			MinSimilarity:    v.GetFloat64("memory.min_similarity"),
			SummaryThreshold: v.GetInt("memory.summary_threshold"),
			RecentMessages:   v.GetInt("memory.recent_messages"),
		},
		Composer: ComposerConfig{
			ProviderTimeout: v.GetString("composer.provider_timeout"),
			HandlerTimeout:  v.GetString("composer.handler_timeout"),
			TurnTimeout:     v.GetString("composer.turn_timeout"),
		},
		Log: LogConfig{
			Debug:  v.GetBool("log.debug"),
			Pretty: v.GetBool("log.pretty"),
			File:   v.GetString("log.file"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
