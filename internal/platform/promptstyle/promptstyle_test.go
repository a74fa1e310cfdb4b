package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Extract text.", "json")
	twice := ApplySystem(once, "json")
	if once != twice {
		t.Fatalf("ApplySystem not idempotent:\n%s\n---\n%s", once, twice)
	}
	if !strings.HasSuffix(once, "Extract text.") {
		t.Fatalf("ApplySystem: original prompt must stay last, got %q", once)
	}
}

func TestApplySystemEmpty(t *testing.T) {
	if got := ApplySystem("   ", "json"); got != "" {
		t.Fatalf("ApplySystem(empty): want=\"\" got=%q", got)
	}
}
