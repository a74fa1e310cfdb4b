package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studyforge-backend/internal/clients/redis"
	"github.com/yungbote/studyforge-backend/internal/platform/gcp"
	"github.com/yungbote/studyforge-backend/internal/platform/gemini"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/localstore"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/platform/openai"
	"github.com/yungbote/studyforge-backend/internal/platform/s3"
	"github.com/yungbote/studyforge-backend/internal/services"
)

type Clients struct {
	Store services.ObjectStore
	LLM   llm.Invoker
	// Redis is nil when REDIS_ADDR is unset.
	Redis *goredis.Client

	closers []func() error
}

func WireClients(ctx context.Context, log *logger.Logger, cfg Config) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}

	store, closeStore, err := resolveObjectStore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	c.Store = store
	if closeStore != nil {
		c.closers = append(c.closers, closeStore)
	}

	inv, closeLLM, err := NewLLM(ctx, log, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.LLM = inv
	if closeLLM != nil {
		c.closers = append(c.closers, closeLLM)
	}

	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
	}
	return c, nil
}

func resolveObjectStore(ctx context.Context, log *logger.Logger, cfg Config) (services.ObjectStore, func() error, error) {
	log.Info("Selecting object storage provider", "provider", cfg.StorageProvider)
	switch cfg.StorageProvider {
	case "gcs":
		bcfg, err := gcp.BucketConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("gcs config: %w", err)
		}
		b, err := gcp.NewBucket(ctx, log, bcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs bucket: %w", err)
		}
		return b, b.Close, nil
	case "s3":
		st, err := s3.NewStore(ctx, log, s3.ConfigFromEnv())
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 store: %w", err)
		}
		return st, nil, nil
	case "local":
		st, err := localstore.New(log, cfg.LocalStorageRoot, cfg.LocalStorageURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init local store: %w", err)
		}
		return st, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported OBJECT_STORAGE_PROVIDER %q", cfg.StorageProvider)
}

// NewLLM builds the configured provider behind the outbound request throttle.
// The returned closer may be nil.
func NewLLM(ctx context.Context, log *logger.Logger, cfg Config) (llm.Invoker, func() error, error) {
	inv, closer, err := resolveLLM(ctx, log, cfg)
	if err != nil {
		return nil, nil, err
	}
	return llm.Throttle(inv, cfg.LLMMaxRPS, cfg.LLMBurst), closer, nil
}

func resolveLLM(ctx context.Context, log *logger.Logger, cfg Config) (llm.Invoker, func() error, error) {
	log.Info("Selecting LLM provider", "provider", cfg.LLMProvider, "max_rps", cfg.LLMMaxRPS)
	switch cfg.LLMProvider {
	case "openai":
		c, err := openai.NewClient(log)
		if err != nil {
			return nil, nil, fmt.Errorf("init openai client: %w", err)
		}
		return c, nil, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, log)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini client: %w", err)
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
