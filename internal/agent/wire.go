package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/collab/inmemory"
	"github.com/rcliao/agentcore/internal/collab/postgres"
	"github.com/rcliao/agentcore/internal/collab/redis"
	"github.com/rcliao/agentcore/internal/collab/sqlite"
	"github.com/rcliao/agentcore/internal/config"
	"github.com/rcliao/agentcore/internal/embedding"
	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/llm/anthropic"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/plugin/recall"
)

// OpenStore opens the collaborator selected by cfg.Provider.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (collab.Store, error) {
	switch cfg.Provider {
	case "memory":
		return inmemory.New(), nil
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("%w: storage.sqlite_path is required", model.ErrInvalidInput)
		}
		return sqlite.New(cfg.SQLitePath)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: storage.postgres_dsn is required", model.ErrInvalidInput)
		}
		return postgres.New(ctx, cfg.PostgresDSN)
	case "redis":
		return redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("%w: unknown storage provider %q", model.ErrInvalidInput, cfg.Provider)
	}
}

// NewRouter registers the model handlers cfg enables: an HTTP embedder for
// TEXT_EMBEDDING and Claude for TEXT_SMALL, TEXT_LARGE and OBJECT_SMALL.
func NewRouter(cfg *config.Config) (*llm.Router, error) {
	router := llm.NewRouter()

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if emb != nil {
		router.Register(llm.TextEmbedding, llm.EmbeddingHandler(emb))
	}

	if cfg.Model.Provider == "anthropic" {
		opts := []anthropic.Option{
			anthropic.WithMaxTokens(cfg.Model.MaxTokens),
			anthropic.WithTemperature(cfg.Model.Temperature),
		}
		anthropic.Register(router,
			anthropic.New(cfg.Model.APIKey, cfg.Model.SmallModel, opts...),
			anthropic.New(cfg.Model.APIKey, cfg.Model.LargeModel, opts...),
		)
	}
	return router, nil
}

// FromConfig builds a Runtime from cfg with the recall plugin registered.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Provider, err)
	}

	var cache *embedding.Cache
	if router.Has(llm.TextEmbedding) {
		cache = embedding.NewCache(router,
			embedding.WithCapacity(cfg.Embedding.CacheSize),
			embedding.WithDimensions(int(cfg.Embedding.Dimensions)),
			embedding.WithLogger(logger),
		)
	}

	rt, err := New(Options{
		AgentID:         cfg.Agent.ID,
		Store:           store,
		Models:          router,
		Cache:           cache,
		Dimensions:      dimensions(cache, cfg),
		ProviderTimeout: cfg.Composer.ProviderTimeoutDuration(),
		HandlerTimeout:  cfg.Composer.HandlerTimeoutDuration(),
		TurnTimeout:     cfg.Composer.TurnTimeoutDuration(),
		Logger:          logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	rc := recall.New(rt.Memory(), router, cfg.Memory, recall.WithLogger(logger))
	if err := rt.RegisterPlugin(ctx, rc.Plugin()); err != nil {
		rt.Stop()
		return nil, err
	}
	return rt, nil
}

// dimensions enforces the configured embedding size only when embeddings
// are enabled, so stores written without embeddings stay readable.
func dimensions(cache *embedding.Cache, cfg *config.Config) int {
	if cache == nil {
		return 0
	}
	return int(cfg.Embedding.Dimensions)
}
