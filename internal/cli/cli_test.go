package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestHashMatchesIngestionNormalization(t *testing.T) {
	path := writeFile(t, "  Mitosis\r\nand meiosis  \r\n")
	out, err := run(t, "hash", path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	want := chunking.TextHash("Mitosis\nand meiosis")
	if got := strings.TrimSpace(out); got != want {
		t.Fatalf("hash: want=%s got=%s", want, got)
	}
}

func TestChunkJSON(t *testing.T) {
	body := strings.Repeat("The cell cycle has distinct phases. ", 80)
	path := writeFile(t, body)
	out, err := run(t, "chunk", "--json", path)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	var rows []chunkRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rows) < 2 {
		t.Fatalf("chunks: want >=2 got=%d", len(rows))
	}
	text := chunking.Normalize(body)
	for i, r := range rows {
		if r.Index != i || text[r.Start:r.End] != r.Text {
			t.Fatalf("row %d: offsets do not address the text: %+v", i, r)
		}
	}
}

func TestChunkRejectsBadParams(t *testing.T) {
	path := writeFile(t, "short text")
	defer func() { chunkParams = chunking.DefaultParams() }()
	if _, err := run(t, "chunk", "--min", "50", "--overlap", "60", path); err == nil {
		t.Fatalf("want error for overlap >= min")
	}
}

func TestIngestRejectsUnknownMode(t *testing.T) {
	path := writeFile(t, "text")
	defer func() { ingestMode = "faithful" }()
	_, err := run(t, "ingest", "--mode", "poetic", path)
	if err == nil || !strings.Contains(err.Error(), "poetic") {
		t.Fatalf("want unknown mode error got %v", err)
	}
}
