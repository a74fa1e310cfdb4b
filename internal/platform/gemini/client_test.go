package gemini

import (
	"context"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/studyforge-backend/internal/platform/llm"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"quota", status.Error(codes.ResourceExhausted, "quota"), true},
		{"bad request", status.Error(codes.InvalidArgument, "bad"), false},
		{"rest 503", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 503}), true},
		{"rest 400", &googleapi.Error{Code: 400}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestToPartsDecodesAttachments(t *testing.T) {
	parts, err := toParts([]llm.Message{{
		Role:        llm.RoleUser,
		Text:        "transcribe",
		Attachments: []llm.Attachment{{MimeType: "image/png", Base64: "aGVsbG8="}},
	}})
	if err != nil {
		t.Fatalf("toParts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("parts: want=2 got=%d", len(parts))
	}
	if _, err := toParts([]llm.Message{{Attachments: []llm.Attachment{{Base64: "%%"}}}}); err == nil {
		t.Fatalf("want decode error")
	}
}
