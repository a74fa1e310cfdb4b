package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

func TestPutWritesUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, err := New(logger.Nop(), root, "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	url, err := s.Put(context.Background(), "../../escape/a.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8080/files/escape/a.pdf" {
		t.Fatalf("url: got=%q", url)
	}
	b, err := os.ReadFile(filepath.Join(root, "escape", "a.pdf"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "%PDF-1.4" {
		t.Fatalf("content: got=%q", b)
	}
}

func TestGetReadsBack(t *testing.T) {
	s, err := New(logger.Nop(), t.TempDir(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Put(context.Background(), "docs/u/1.png", []byte("png"), "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(context.Background(), "/docs/u/1.png")
	if err != nil || string(got) != "png" {
		t.Fatalf("Get: want=png got=%q err=%v", got, err)
	}
	if _, err := s.Get(context.Background(), "missing"); err == nil {
		t.Fatalf("Get missing: want error")
	}
}
