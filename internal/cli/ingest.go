package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/studyforge-backend/internal/app"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
	"github.com/yungbote/studyforge-backend/internal/modules/study/generation"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ingestion"
	"github.com/yungbote/studyforge-backend/internal/modules/study/prompts"
	"github.com/yungbote/studyforge-backend/internal/platform/pdftools"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Acquire, chunk and generate artifacts for a local file",
	Long: `Runs text acquisition, chunking and the draft/validate pipeline against the
configured LLM provider and prints the grounded bundle as JSON. Nothing is
stored and no quota is consumed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestMode     string
	ingestTextOnly bool
	ingestEnvFile  string
)

func init() {
	f := ingestCmd.Flags()
	f.StringVarP(&ingestMode, "mode", "m", string(study.ModeFaithful), "generation mode: faithful, deepened or exam")
	f.BoolVar(&ingestTextOnly, "text-only", false, "stop after acquisition and print the extracted text")
	f.StringVar(&ingestEnvFile, "env-file", ".env", "dotenv file to load before reading configuration")
	rootCmd.AddCommand(ingestCmd)
}

type ingestOutput struct {
	File        string         `json:"file"`
	Method      string         `json:"method"`
	Confidence  string         `json:"confidence"`
	Pages       int            `json:"pages"`
	Warnings    []string       `json:"warnings,omitempty"`
	SourceHash  string         `json:"sourceHash"`
	Chunks      int            `json:"chunks"`
	Mode        study.Mode     `json:"mode"`
	Validated   bool           `json:"validated"`
	DraftOnly   bool           `json:"draftOnly"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
	Bundle      any            `json:"bundle"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	mode, ok := study.ParseMode(ingestMode)
	if !ok {
		return fmt.Errorf("unknown mode %q", ingestMode)
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.LoadEnvFiles(ingestEnvFile); err != nil {
		return err
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	inv, closer, err := app.NewLLM(ctx, log, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}
	pack, err := prompts.Default()
	if err != nil {
		return err
	}

	acq := ingestion.New(log, inv, pdftools.Default{}, pack, cfg.Ingestion)
	res, err := acq.Acquire(ctx, ingestion.Input{
		FileName: filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	text := chunking.Normalize(res.Text)
	if ingestTextOnly {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}

	hash := chunking.TextHash(text)
	parts, err := chunking.Split(text, cfg.Chunking)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	// A stable id per content keeps chunk ids identical across runs.
	docID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(hash))
	chunks := make([]*study.Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, &study.Chunk{
			ID:          study.ChunkID(docID, hash, p.Index),
			DocumentID:  docID,
			SourceHash:  hash,
			OrderIndex:  p.Index,
			Text:        p.Text,
			StartOffset: p.Start,
			EndOffset:   p.End,
		})
	}

	out, err := generation.New(log, inv, pack).Run(ctx, generation.Request{DocumentID: docID, Mode: mode, Chunks: chunks})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ingestOutput{
		File:        path,
		Method:      string(res.Method),
		Confidence:  string(res.Confidence),
		Pages:       res.Pages,
		Warnings:    res.Warnings,
		SourceHash:  hash,
		Chunks:      len(chunks),
		Mode:        mode,
		Validated:   out.Validated,
		DraftOnly:   out.DraftOnly,
		Diagnostics: res.Diagnostics,
		Bundle:      out.Bundle,
	})
}
