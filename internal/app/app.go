package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/studyforge-backend/internal/data/db"
	"github.com/yungbote/studyforge-backend/internal/data/repos"
	apphttp "github.com/yungbote/studyforge-backend/internal/http"
	httpH "github.com/yungbote/studyforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studyforge-backend/internal/http/middleware"
	"github.com/yungbote/studyforge-backend/internal/observability"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Repos
	Clients  *Clients
	Services Services
	Hub      *realtime.Hub
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New wires the API process. ctx bounds background forwarders; cancel it (or
// call Close) to stop them.
func New(ctx context.Context) (*App, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("config: missing JWT_SECRET_KEY")
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &App{Log: log, Cfg: cfg, cancel: cancel}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	gdb, err := db.Open(log, cfg.DB)
	if err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = gdb
	a.Repos = repos.New(gdb, log)

	clients, err := WireClients(ctx, log, cfg)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.Clients = clients

	a.Hub = realtime.NewHub(log)
	svcs, err := wireServices(ctx, gdb, log, cfg, a.Repos, clients, a.Hub)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.Services = svcs

	sqlDB, err := gdb.DB()
	if err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("sql db: %w", err)
	}
	a.Server = apphttp.NewServer(":"+cfg.Port, apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, cfg.JWTSecret, cfg.JWTIssuer),
		HealthHandler:   httpH.NewHealthHandler(sqlDB),
		DocumentHandler: httpH.NewDocumentHandler(log, svcs.Document, svcs.Generation, cfg.Ingestion.MaxUploadBytes),
		ReviewHandler:   httpH.NewReviewHandler(svcs.Review),
		RealtimeHandler: httpH.NewRealtimeHandler(log, a.Hub),
	})
	return a, nil
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Shutdown stops accepting requests and waits for in-flight ingestion.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		errs = append(errs, a.Server.Shutdown(ctx))
	}
	if a.Services.Document != nil {
		if err := a.Services.Document.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("background ingestion: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
