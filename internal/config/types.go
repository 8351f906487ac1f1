package config

// Config is the agentcore configuration stored as config.toml in the
// config directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Agent     AgentConfig     `toml:"agent"`
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Model     ModelConfig     `toml:"model"`
	Memory    MemoryConfig    `toml:"memory"`
	Composer  ComposerConfig  `toml:"composer"`
	Log       LogConfig       `toml:"log"`
}

// AgentConfig identifies the agent whose memories are served.
type AgentConfig struct {
	ID   string `toml:"id,omitempty"`
	Name string `toml:"name,omitempty"`
}

// StorageConfig selects the persistent collaborator backend.
// Provider is one of "memory", "sqlite", "postgres" or "redis".
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	RedisAddr   string `toml:"redis_addr,omitempty"`
	RedisPrefix string `toml:"redis_prefix,omitempty"`
}

// EmbeddingConfig holds embedding provider and cache settings.
// An empty Provider disables embeddings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	CacheSize  int    `toml:"cache_size,omitempty"`
}

// ModelConfig holds text generation settings. An empty Provider disables
// the text model handlers.
type ModelConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
	SmallModel  string  `toml:"small_model,omitempty"`
	LargeModel  string  `toml:"large_model,omitempty"`
	MaxTokens   int     `toml:"max_tokens,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
}

// MemoryConfig tunes extraction, retrieval and summarization.
type MemoryConfig struct {
	MinConfidence    float64 `toml:"min_confidence,omitempty"`
	LongTermLimit    int     `toml:"long_term_limit,omitempty"`
	UseSimilarity    bool    `toml:"use_similarity,omitempty"`
	MinSimilarity    float64 `toml:"min_similarity,omitempty"`
	SummaryThreshold int     `toml:"summary_threshold,omitempty"`
	RecentMessages   int     `toml:"recent_messages,omitempty"`
}

// ComposerConfig holds per-turn deadlines as Go duration strings.
type ComposerConfig struct {
	ProviderTimeout string `toml:"provider_timeout,omitempty"`
	HandlerTimeout  string `toml:"handler_timeout,omitempty"`
	TurnTimeout     string `toml:"turn_timeout,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug  bool   `toml:"debug,omitempty"`
	Pretty bool   `toml:"pretty,omitempty"`
	File   string `toml:"file,omitempty"`
}
