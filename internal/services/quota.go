package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studyforge-backend/internal/data/repos"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/envutil"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

// Plan is the effective billing plan. DailyConversions <= 0 means unlimited.
type Plan struct {
	Name             string
	DailyConversions int
}

func (p Plan) Unlimited() bool { return p.DailyConversions <= 0 }

type PlanResolver interface {
	GetEffectivePlan(ctx context.Context, userID uuid.UUID) (Plan, error)
}

type UsageStore interface {
	GetDailyUsage(ctx context.Context, userID uuid.UUID, day string) (int, error)
	IncrementDailyUsage(ctx context.Context, userID uuid.UUID, day string) (int, error)
}

// envPlanResolver grants the free plan to everyone except PRO_USER_IDS.
type envPlanResolver struct {
	free Plan
	pro  map[uuid.UUID]bool
}

func NewEnvPlanResolver() PlanResolver {
	pro := map[uuid.UUID]bool{}
	for _, s := range strings.Split(envutil.String("PRO_USER_IDS", ""), ",") {
		if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
			pro[id] = true
		}
	}
	return &envPlanResolver{
		free: Plan{Name: "free", DailyConversions: envutil.Int("FREE_DAILY_CONVERSIONS", 3)},
		pro:  pro,
	}
}

func (r *envPlanResolver) GetEffectivePlan(_ context.Context, userID uuid.UUID) (Plan, error) {
	if r.pro[userID] {
		return Plan{Name: "pro"}, nil
	}
	return r.free, nil
}

type gormUsageStore struct {
	repo repos.DailyUsageRepo
}

func NewGormUsageStore(repo repos.DailyUsageRepo) UsageStore {
	return &gormUsageStore{repo: repo}
}

func (s *gormUsageStore) GetDailyUsage(ctx context.Context, userID uuid.UUID, day string) (int, error) {
	return s.repo.Get(dbctx.Context{Ctx: ctx}, userID, day)
}

func (s *gormUsageStore) IncrementDailyUsage(ctx context.Context, userID uuid.UUID, day string) (int, error) {
	return s.repo.Increment(dbctx.Context{Ctx: ctx}, userID, day)
}

const usageKeyTTL = 48 * time.Hour

type redisUsageStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisUsageStore(rdb goredis.UniversalClient, prefix string) UsageStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "studyforge:usage"
	}
	return &redisUsageStore{rdb: rdb, prefix: prefix}
}

func (s *redisUsageStore) key(userID uuid.UUID, day string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, userID, day)
}

func (s *redisUsageStore) GetDailyUsage(ctx context.Context, userID uuid.UUID, day string) (int, error) {
	n, err := s.rdb.Get(ctx, s.key(userID, day)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *redisUsageStore) IncrementDailyUsage(ctx context.Context, userID uuid.UUID, day string) (int, error) {
	k := s.key(userID, day)
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, usageKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

// QuotaService gates conversions (cache misses) by the daily plan limit.
type QuotaService interface {
	Check(ctx context.Context, userID uuid.UUID) error
	Consume(ctx context.Context, userID uuid.UUID) (int, error)
}

type quotaService struct {
	log   *logger.Logger
	plans PlanResolver
	usage UsageStore
	now   func() time.Time
}

func NewQuotaService(baseLog *logger.Logger, plans PlanResolver, usage UsageStore) QuotaService {
	return &quotaService{
		log:   baseLog.With("service", "QuotaService"),
		plans: plans,
		usage: usage,
		now:   time.Now,
	}
}

func (s *quotaService) Check(ctx context.Context, userID uuid.UUID) error {
	plan, err := s.plans.GetEffectivePlan(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve plan: %w", err)
	}
	if plan.Unlimited() {
		return nil
	}
	used, err := s.usage.GetDailyUsage(ctx, userID, study.UsageDay(s.now()))
	if err != nil {
		return fmt.Errorf("daily usage: %w", err)
	}
	if used >= plan.DailyConversions {
		s.log.Info("daily conversion limit reached", "user_id", userID, "plan", plan.Name, "used", used)
		return apierr.ErrLimitReached
	}
	return nil
}

func (s *quotaService) Consume(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.usage.IncrementDailyUsage(ctx, userID, study.UsageDay(s.now()))
}
