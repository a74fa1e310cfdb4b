package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/studyforge-backend/internal/data/repos"
	"github.com/yungbote/studyforge-backend/internal/modules/study/generation"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ingestion"
	"github.com/yungbote/studyforge-backend/internal/modules/study/prompts"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ratelimit"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/platform/pdftools"
	"github.com/yungbote/studyforge-backend/internal/realtime"
	"github.com/yungbote/studyforge-backend/internal/realtime/bus"
	"github.com/yungbote/studyforge-backend/internal/services"
)

type Services struct {
	Acquirer   *ingestion.Acquirer
	Pipeline   *generation.Pipeline
	Limiter    *ratelimit.Limiter
	Quota      services.QuotaService
	Review     services.ReviewService
	Generation services.GenerationService
	Document   services.DocumentService
	Bus        bus.Bus
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, r repos.Repos, clients *Clients, hub *realtime.Hub) (Services, error) {
	log.Info("Wiring services...")

	pack, err := prompts.Default()
	if err != nil {
		return Services{}, fmt.Errorf("load prompt pack: %w", err)
	}

	eventBus, err := wireBus(ctx, log, cfg, clients, hub)
	if err != nil {
		return Services{}, err
	}
	notify := services.NewDocumentNotifier(log, eventBus)

	var usage services.UsageStore
	if clients.Redis != nil {
		usage = services.NewRedisUsageStore(clients.Redis, cfg.UsagePrefix)
	} else {
		usage = services.NewGormUsageStore(r.DailyUsage)
	}

	limiter := ratelimit.New(ratelimit.Config{SweepEvery: cfg.RateLimitSweep, MaxBuckets: cfg.RateLimitMax})
	acquirer := ingestion.New(log, clients.LLM, pdftools.Default{}, pack, cfg.Ingestion)
	pipeline := generation.New(log, clients.LLM, pack)
	quota := services.NewQuotaService(log, services.NewEnvPlanResolver(), usage)
	review := services.NewReviewService(log, r.Artifact, r.ReviewItem)
	gen := services.NewGenerationService(db, log, r, pipeline, limiter, quota, review, notify, services.GenerationConfig{
		Chunking:     cfg.Chunking,
		GenerateRule: cfg.GenerateRule,
	})
	doc := services.NewDocumentService(log, r.Document, clients.Store, acquirer, gen, limiter, notify, services.DocumentConfig{
		UploadRule:     cfg.UploadRule,
		DefaultMode:    cfg.DefaultMode,
		MaxConcurrency: cfg.IngestWorkers,
	})

	return Services{
		Acquirer:   acquirer,
		Pipeline:   pipeline,
		Limiter:    limiter,
		Quota:      quota,
		Review:     review,
		Generation: gen,
		Document:   doc,
		Bus:        eventBus,
	}, nil
}

// wireBus fans events through Redis when configured so every replica's hub
// sees them; otherwise events go straight into the local hub.
func wireBus(ctx context.Context, log *logger.Logger, cfg Config, clients *Clients, hub *realtime.Hub) (bus.Bus, error) {
	if clients.Redis == nil {
		return bus.Local{Hub: hub}, nil
	}
	b, err := bus.NewRedisBus(log, clients.Redis, cfg.EventsChannel)
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}
	if err := b.StartForwarder(ctx, hub.Broadcast); err != nil {
		return nil, fmt.Errorf("start event forwarder: %w", err)
	}
	return b, nil
}
