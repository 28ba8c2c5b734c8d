package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/seadrift/dive-insights/internal/domain/auth"
	"github.com/seadrift/dive-insights/internal/domain/export"
	"github.com/seadrift/dive-insights/internal/domain/insight"
	"github.com/seadrift/dive-insights/internal/infra/config"
	"github.com/seadrift/dive-insights/internal/infra/diverepo"
	"github.com/seadrift/dive-insights/internal/infra/geocode"
	"github.com/seadrift/dive-insights/internal/infra/insightstore"
	"github.com/seadrift/dive-insights/internal/infra/llm/chatgpt"
	"github.com/seadrift/dive-insights/internal/infra/photostore"
)

// diveRepository bundles every row-store contract the pipeline consumes; both
// the Postgres and the in-memory repository satisfy it.
type diveRepository interface {
	insight.BaselineRepository
	insight.CacheRepository
	insight.CreditRepository
	export.Repository
}

func provideInsightConfig(cfg *config.Config) insight.Config {
	return insight.Config{
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Seed:           cfg.LLM.Seed,
		RequestTimeout: cfg.LLM.RequestTimeout,
		CacheTTL:       cfg.Insight.CacheTTL,
		CreditLimit:    cfg.Insight.CreditLimit,
		CreditWindow:   cfg.Insight.CreditWindow,
	}
}

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideDiveRepository(cfg *config.Config, logger *slog.Logger) diveRepository {
	fallback := diverepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Dive.Postgres.DSN)
	if dsn == "" {
		logger.Info("dive postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Dive.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Dive.Postgres.MaxConns
	}
	if cfg.Dive.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Dive.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("dive postgres repository enabled")
	return diverepo.NewPostgresRepository(pool)
}

func provideKVStore(cfg *config.Config, logger *slog.Logger) insight.KVStore {
	if cfg.Dive.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return insightstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return insightstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("insight valkey store enabled", "addr", cfg.Dive.Valkey.Addr)
			return insightstore.NewValkeyStore(client, "dive")
		}
	}
	return insightstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Dive.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Dive.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Dive.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideBaselineFetcher(repo diveRepository, logger *slog.Logger) *insight.BaselineFetcher {
	return insight.NewBaselineFetcher(repo, logger)
}

func provideInsightCache(cfg insight.Config, repo diveRepository, kv insight.KVStore, logger *slog.Logger) *insight.InsightCache {
	return insight.NewInsightCache(repo, kv, cfg.CacheTTL, logger)
}

func provideRateLimiter(cfg insight.Config, repo diveRepository, logger *slog.Logger) *insight.RateLimiter {
	return insight.NewRateLimiter(repo, cfg, logger)
}

func providePhotoSigner(cfg *config.Config, logger *slog.Logger) export.PhotoSigner {
	if strings.TrimSpace(cfg.Photos.Endpoint) == "" || strings.TrimSpace(cfg.Photos.Bucket) == "" {
		logger.Info("photo store not configured, export emits raw photo keys")
		return nil
	}
	store, err := photostore.NewMinioStore(cfg.Photos.Endpoint, cfg.Photos.AccessKey, cfg.Photos.SecretKey, cfg.Photos.Bucket, cfg.Photos.Region, cfg.Photos.URLTTL, logger)
	if err != nil {
		logger.Error("failed to initialize photo store, export emits raw photo keys", "error", err)
		return nil
	}
	return store
}

func provideExportService(repo diveRepository, photos export.PhotoSigner, logger *slog.Logger) export.Service {
	return export.NewService(repo, photos, logger)
}

func provideGeocodeClient(cfg *config.Config) *geocode.Client {
	return geocode.NewClient(cfg.Geocode.BaseURL)
}

func provideVerifier(cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	authCfg := auth.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
	}
	if cfg.Auth.Issuer != "" {
		logger.Info("using oidc token verification", "issuer", cfg.Auth.Issuer)
		return auth.NewOIDCVerifier(context.Background(), authCfg)
	}
	return auth.NewHS256Verifier(authCfg), nil
}
