package config

const (
	defaultAgentID   = "agent"
	defaultAgentName = "agent"

	defaultStorageProvider = "sqlite"
	defaultSQLiteFile      = "agentcore.db"
	defaultRedisAddr       = "localhost:6379"
	defaultRedisPrefix     = "agentcore"

	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingCacheSize  = 1000

	defaultSmallModel  = "claude-3-5-haiku-latest"
	defaultLargeModel  = "claude-sonnet-4-5"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2

	defaultMinConfidence    = 0.5
	defaultLongTermLimit    = 20
	defaultMinSimilarity    = 0.3
	defaultSummaryThreshold = 16
	defaultRecentMessages   = 10

	defaultProviderTimeout = "10s"
	defaultHandlerTimeout  = "30s"
	defaultTurnTimeout     = "2m"
)

// NewDefaultConfig returns a Config with defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Agent: AgentConfig{
			ID:   defaultAgentID,
			Name: defaultAgentName,
		},
		Storage: StorageConfig{
			Provider:    defaultStorageProvider,
			RedisAddr:   defaultRedisAddr,
			RedisPrefix: defaultRedisPrefix,
		},
		Embedding: EmbeddingConfig{
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			CacheSize:  defaultEmbeddingCacheSize,
		},
		Model: ModelConfig{
			SmallModel:  defaultSmallModel,
			LargeModel:  defaultLargeModel,
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
		},
		Memory: MemoryConfig{
			MinConfidence:    defaultMinConfidence,
			LongTermLimit:    defaultLongTermLimit,
			MinSimilarity:    defaultMinSimilarity,
			SummaryThreshold: defaultSummaryThreshold,
			RecentMessages:   defaultRecentMessages,
		},
		Composer: ComposerConfig{
			ProviderTimeout: defaultProviderTimeout,
			HandlerTimeout:  defaultHandlerTimeout,
			TurnTimeout:     defaultTurnTimeout,
		},
	}
}
