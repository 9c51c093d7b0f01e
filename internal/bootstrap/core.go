package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"examgen/internal/ai"
	"examgen/internal/app"
	"examgen/internal/cache"
	"examgen/internal/config"
	"examgen/internal/filestore"
	"examgen/internal/pkg/pdfextract"
	redisClient "examgen/internal/platform/redis"
	"examgen/internal/vectorindex"
)

// Core is the database-free part of the system: provider clients, file
// stores and the ingest/retrieve/generate/evaluate pipeline. The CLI runs on
// Core alone.
type Core struct {
	Config *config.Config
	Logger *slog.Logger
	Redis  *redis.Client

	Documents *filestore.DocumentStore
	Artifacts *filestore.ArtifactStore

	Ingest      *app.IngestService
	Retriever   *app.Retriever
	Synthesizer *app.Synthesizer
	Evaluator   *app.Evaluator
}

func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Core, error) {
	completer, embedder, model, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	core := &Core{Config: cfg, Logger: logger}

	embedder = ai.NewRetryingEmbedder(embedder, ai.RateLimitPolicy())
	if cfg.Redis.Enabled {
		core.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(cfg.Redis.EmbeddingTTLSeconds) * time.Second
		embedder = ai.NewCachingEmbedder(embedder, cache.NewEmbeddingCache(core.Redis, cfg.Redis.KeyPrefix, ttl), model, logger)
	}

	core.Documents, err = filestore.NewDocumentStore(cfg.Storage.UploadDir)
	if err != nil {
		core.Close()
		return nil, err
	}
	core.Artifacts, err = filestore.NewArtifactStore(cfg.Storage.DataDir)
	if err != nil {
		core.Close()
		return nil, err
	}

	core.Ingest = app.NewIngestService(
		core.Documents,
		core.Artifacts,
		pdfextract.New(logger),
		embedder,
		app.WithChunkWords(cfg.Ingest.ChunkWords),
		app.WithPageBatchSize(cfg.Ingest.PageBatchSize),
		app.WithIngestLogger(logger),
	)

	var indexes *vectorindex.Cache
	if cfg.Retrieval.CacheIndexes {
		indexes = vectorindex.NewCache()
	}
	core.Retriever = app.NewRetriever(core.Artifacts, embedder, indexes, logger)
	core.Synthesizer = app.NewSynthesizer(core.Retriever, completer, app.WithSynthesizerLogger(logger))
	core.Evaluator = app.NewEvaluator(completer, app.WithEvaluatorLogger(logger))
	return core, nil
}

// newProvider returns the configured completion and embedding clients and the
// embedding model name used to key cached vectors.
func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ai.Completer, ai.Embedder, string, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:         cfg.Gemini.APIKey,
			Model:          cfg.Gemini.Model,
			EmbeddingModel: cfg.Gemini.EmbeddingModel,
		}, logger)
		if err != nil {
			return nil, nil, "", err
		}
		return client, client, cfg.Gemini.EmbeddingModel, nil
	case config.ProviderOpenAI:
		embedding := ai.EmbeddingConfig{
			BaseURL: cfg.LLM.EmbeddingBaseURL,
			APIKey:  cfg.LLM.EmbeddingAPIKey,
			Model:   cfg.LLM.EmbeddingModel,
		}
		if embedding.BaseURL == "" {
			embedding.BaseURL = cfg.LLM.BaseURL
		}
		if embedding.APIKey == "" {
			embedding.APIKey = cfg.LLM.APIKey
		}
		client := ai.NewOpenAICompatibleClient(
			ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model},
			embedding,
			ai.ClientOptions{
				Timeout:           time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
				RequestsPerSecond: cfg.LLM.RequestsPerSecond,
				Burst:             cfg.LLM.Burst,
			},
		)
		return client, client, embedding.Model, nil
	default:
		return nil, nil, "", fmt.Errorf("%w: unknown llm provider %q", config.ErrInvalidConfig, cfg.LLM.Provider)
	}
}

func (c *Core) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}
