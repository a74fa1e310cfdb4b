package observability

import (
	"context"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders([]string{"api-key=abc", "broken", "x= ", " tenant = study=forge "})
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "study=forge" {
		t.Fatalf("parseHeaders: got=%v", got)
	}
	if parseHeaders(nil) != nil {
		t.Fatalf("parseHeaders(nil): want nil")
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{ServiceName: "studyforge-test"})
	if shutdown == nil {
		t.Fatalf("shutdown: want non-nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
