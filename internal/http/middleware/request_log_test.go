package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

func observed() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestRequestLoggerLevelsAndFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, logs := observed()
	r := gin.New()
	r.Use(AttachTraceContext(), RequestLogger(log))
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/healthcheck", "/documents/abc"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("health check level: want=debug got=%v", entries[0].Level)
	}
	miss := entries[1]
	if miss.Level != zapcore.WarnLevel {
		t.Fatalf("404 level: want=warn got=%v", miss.Level)
	}
	fields := miss.ContextMap()
	if fields["path"] != "/documents/:id" || fields["resource_id"] != "abc" {
		t.Fatalf("fields: got=%v", fields)
	}
	if fields["trace_id"] == "" || fields["request_id"] == "" {
		t.Fatalf("trace fields missing: %v", fields)
	}
}

func TestAttachTraceContextHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "req-42")
	req.Header.Set(headerTraceID, "client-trace")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(headerRequestID); got != "req-42" {
		t.Fatalf("request id: want=req-42 got=%s", got)
	}
	if got := w.Header().Get(headerTraceID); got != "client-trace" {
		t.Fatalf("trace id without span: want=client-trace got=%s", got)
	}

	long := make([]byte, maxRequestIDLen+1)
	for i := range long {
		long[i] = 'x'
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, string(long))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(headerRequestID); got == string(long) || got == "" {
		t.Fatalf("oversized request id should be replaced, got=%q", got)
	}
}
