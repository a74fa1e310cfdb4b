package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
)

var hashCmd = &cobra.Command{
	Use:   "hash [file]",
	Short: "Print the source hash of a text file",
	Long:  `Normalizes the file the same way ingestion does and prints the SHA-256 used as the artifact cache key.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHash,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Chunk a text file and print offsets",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

var (
	chunkParams = chunking.DefaultParams()
	chunkJSON   bool
)

func init() {
	f := chunkCmd.Flags()
	f.IntVar(&chunkParams.Target, "target", chunkParams.Target, "target chunk size in bytes")
	f.IntVar(&chunkParams.Min, "min", chunkParams.Min, "minimum chunk size in bytes")
	f.IntVar(&chunkParams.Max, "max", chunkParams.Max, "maximum chunk size in bytes")
	f.IntVar(&chunkParams.Overlap, "overlap", chunkParams.Overlap, "overlap between chunks in bytes")
	f.BoolVar(&chunkJSON, "json", false, "print chunks as JSON")

	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(chunkCmd)
}

func readText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return chunking.Normalize(string(raw)), nil
}

func runHash(cmd *cobra.Command, args []string) error {
	text, err := readText(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), chunking.TextHash(text))
	return nil
}

type chunkRow struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	text, err := readText(args[0])
	if err != nil {
		return err
	}
	parts, err := chunking.Split(text, chunkParams)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if chunkJSON {
		rows := make([]chunkRow, 0, len(parts))
		for _, p := range parts {
			rows = append(rows, chunkRow{Index: p.Index, Start: p.Start, End: p.End, Text: p.Text})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, p := range parts {
		fmt.Fprintf(out, "%4d  [%d,%d)  %d bytes  %s\n", p.Index, p.Start, p.End, p.End-p.Start, preview(p.Text, 60))
	}
	fmt.Fprintf(out, "%d chunks, hash %s\n", len(parts), chunking.TextHash(text))
	return nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
