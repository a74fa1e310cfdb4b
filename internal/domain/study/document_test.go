package study

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to DocumentStatus
		retry    bool
		want     bool
	}{
		{DocumentUploading, DocumentExtracting, false, true},
		{DocumentExtracting, DocumentGenerating, false, true},
		{DocumentGenerating, DocumentReady, false, true},
		{DocumentUploading, DocumentError, false, true},
		{DocumentGenerating, DocumentError, false, true},
		{DocumentUploading, DocumentReady, false, false},
		{DocumentReady, DocumentError, false, false},
		{DocumentError, DocumentExtracting, false, false},
		{DocumentError, DocumentExtracting, true, true},
		{DocumentReady, DocumentGenerating, true, true},
		{DocumentError, DocumentReady, true, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, tc.retry); got != tc.want {
			t.Fatalf("%s -> %s (retry=%v): want=%v got=%v", tc.from, tc.to, tc.retry, tc.want, got)
		}
	}
}

func TestChunkIDDeterministic(t *testing.T) {
	doc := uuid.New()
	a := ChunkID(doc, "h1", 0)
	if b := ChunkID(doc, "h1", 0); a != b {
		t.Fatalf("ChunkID: want stable id, got %s and %s", a, b)
	}
	if ChunkID(doc, "h1", 1) == a || ChunkID(doc, "h2", 0) == a {
		t.Fatalf("ChunkID: expected distinct ids for different order/hash")
	}
}
