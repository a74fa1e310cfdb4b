package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studyforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studyforge-backend/internal/http/middleware"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware  *httpMW.AuthMiddleware
	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	ReviewHandler   *httpH.ReviewHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/events/stream", cfg.RealtimeHandler.Stream)
	}

	// Documents
	if cfg.DocumentHandler != nil {
		api.POST("/documents", cfg.DocumentHandler.Upload)
		api.GET("/documents", cfg.DocumentHandler.List)
		api.GET("/documents/:id", cfg.DocumentHandler.Get)
		api.POST("/documents/:id/retry", cfg.DocumentHandler.Retry)
		api.GET("/documents/:id/chunks", cfg.DocumentHandler.Chunks)
		api.GET("/documents/:id/artifacts", cfg.DocumentHandler.Artifacts)
		api.POST("/documents/:id/generate", cfg.DocumentHandler.Generate)
	}

	// Review
	if cfg.ReviewHandler != nil {
		api.GET("/review/due", cfg.ReviewHandler.Due)
		api.POST("/review/:id/answer", cfg.ReviewHandler.Answer)
	}

	return r
}
