package logger

import (
	"strings"
	"testing"
)

func kvMap(kv []interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func TestSanitizeKVs(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := kvMap(sanitizeKVs([]interface{}{
		"jwt_token", "abc",
		"user_id", "0b6f8b0e-1111-2222-3333-444455556666",
		"extracted_text", long,
		"ocr_text", long,
		"document_id", "d1",
		"header", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig",
	}))

	if got["jwt_token"] != "[REDACTED]" {
		t.Fatalf("token: got=%v", got["jwt_token"])
	}
	if s, _ := got["user_id"].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("user_id: got=%v", got["user_id"])
	}
	for _, k := range []string{"extracted_text", "ocr_text"} {
		if s, _ := got[k].(string); len(s) >= len(long) {
			t.Fatalf("%s: not truncated (%d bytes)", k, len(s))
		}
	}
	if got["document_id"] != "d1" {
		t.Fatalf("document_id: want=d1 got=%v", got["document_id"])
	}
	if got["header"] != "[REDACTED]" {
		t.Fatalf("jwt-looking value: got=%v", got["header"])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"document_id", "d1", "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", got)
	}
}
