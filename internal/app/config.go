package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/studyforge-backend/internal/data/db"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ingestion"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ratelimit"
	"github.com/yungbote/studyforge-backend/internal/observability"
	"github.com/yungbote/studyforge-backend/internal/platform/envutil"
)

type Config struct {
	Env         string
	LogMode     string
	Port        string
	ServiceName string
	Otel        observability.OtelConfig

	DB db.Config

	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string

	// StorageProvider is "gcs", "s3" or "local".
	StorageProvider  string
	LocalStorageRoot string
	LocalStorageURL  string

	// LLMProvider is "openai" or "gemini".
	LLMProvider string
	LLMMaxRPS   float64
	LLMBurst    int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventsChannel string
	UsagePrefix   string

	Ingestion      ingestion.Config
	Chunking       chunking.Params
	DefaultMode    study.Mode
	IngestWorkers  int64
	UploadRule     ratelimit.Rule
	GenerateRule   ratelimit.Rule
	RateLimitSweep int
	RateLimitMax   int
	ShutdownGrace  time.Duration
}

// LoadEnvFiles loads .env when present. Real environment variables win.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func LoadConfig() (Config, error) {
	defaults := chunking.DefaultParams()
	cfg := Config{
		Env:         envutil.String("APP_ENV", "development"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "studyforge-api"),

		DB: db.Config{
			Driver: envutil.String("DB_DRIVER", "postgres"),
			DSN:    envutil.String("DATABASE_URL", ""),
		},

		JWTSecret:      envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:      envutil.String("JWT_ISSUER", ""),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS"),

		StorageProvider:  strings.ToLower(envutil.String("OBJECT_STORAGE_PROVIDER", "local")),
		LocalStorageRoot: envutil.String("LOCAL_STORAGE_ROOT", "./data/uploads"),
		LocalStorageURL:  envutil.String("LOCAL_STORAGE_BASE_URL", ""),

		LLMProvider: strings.ToLower(envutil.String("LLM_PROVIDER", "openai")),
		LLMMaxRPS:   envutil.Float("LLM_MAX_RPS", 2),
		LLMBurst:    envutil.Int("LLM_BURST", 4),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		EventsChannel: envutil.String("REDIS_EVENTS_CHANNEL", "studyforge:events"),
		UsagePrefix:   envutil.String("REDIS_USAGE_PREFIX", "studyforge:usage"),

		Ingestion: ingestion.ConfigFromEnv(),
		Chunking: chunking.Params{
			Target:  envutil.Int("CHUNK_TARGET", defaults.Target),
			Min:     envutil.Int("CHUNK_MIN", defaults.Min),
			Max:     envutil.Int("CHUNK_MAX", defaults.Max),
			Overlap: envutil.Int("CHUNK_OVERLAP", defaults.Overlap),
		},
		DefaultMode:   study.Mode(envutil.String("DEFAULT_GENERATION_MODE", string(study.ModeFaithful))),
		IngestWorkers: envutil.Int64("INGEST_MAX_CONCURRENCY", 4),
		UploadRule: ratelimit.Rule{
			Limit:  envutil.Int("RATE_LIMIT_UPLOAD", 10),
			Window: envutil.Duration("RATE_LIMIT_UPLOAD_WINDOW", time.Hour),
		},
		GenerateRule: ratelimit.Rule{
			Limit:  envutil.Int("RATE_LIMIT_GENERATE", 20),
			Window: envutil.Duration("RATE_LIMIT_GENERATE_WINDOW", time.Hour),
		},
		RateLimitSweep: envutil.Int("RATE_LIMIT_SWEEP_EVERY", 500),
		RateLimitMax:   envutil.Int("RATE_LIMIT_MAX_BUCKETS", 10000),
		ShutdownGrace:  envutil.Duration("SHUTDOWN_GRACE", 30*time.Second),
	}
	cfg.Otel = observability.OtelConfigFromEnv(cfg.ServiceName, cfg.Env)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, ok := study.ParseMode(string(c.DefaultMode)); !ok {
		return fmt.Errorf("invalid DEFAULT_GENERATION_MODE %q", c.DefaultMode)
	}
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	switch c.StorageProvider {
	case "gcs", "s3", "local":
	default:
		return fmt.Errorf("unsupported OBJECT_STORAGE_PROVIDER %q", c.StorageProvider)
	}
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}
