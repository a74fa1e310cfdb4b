package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestParameterisedCodes(t *testing.T) {
	cases := []struct {
		err    *Error
		code   string
		status int
	}{
		{RateLimited(1500 * time.Millisecond), "RATE_LIMITED_RETRY_AFTER_2_SECONDS", http.StatusTooManyRequests},
		{RateLimited(0), "RATE_LIMITED_RETRY_AFTER_1_SECONDS", http.StatusTooManyRequests},
		{FileTooLarge(20 * 1024 * 1024), "FILE_TOO_LARGE_MAX_20_MB", http.StatusRequestEntityTooLarge},
		{UnsupportedMimeType("application/zip"), "UNSUPPORTED_MIME_TYPE_application/zip", http.StatusUnsupportedMediaType},
		{UnsupportedMimeType(" "), "UNSUPPORTED_MIME_TYPE_unknown", http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code || tc.err.Status != tc.status {
			t.Fatalf("code: want=%s/%d got=%s/%d", tc.code, tc.status, tc.err.Code, tc.err.Status)
		}
	}
}

func TestSentinelMatching(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", New(http.StatusPaymentRequired, CodeLimitReached, nil))
	if !errors.Is(wrapped, ErrLimitReached) {
		t.Fatalf("errors.Is: want match on code")
	}
	if errors.Is(wrapped, ErrArtifactsEmpty) {
		t.Fatalf("errors.Is: unexpected match")
	}
	if got := CodeOf(wrapped); got != CodeLimitReached {
		t.Fatalf("CodeOf: want=%s got=%s", CodeLimitReached, got)
	}
	if got := StatusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("StatusOf plain: want=500 got=%d", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("CodeOf nil: got=%q", got)
	}
}
