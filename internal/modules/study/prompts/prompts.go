package prompts

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
)

const promptPackEnv = "STUDY_PROMPTS_YAML"

//go:embed study_prompts.yaml
var promptFS embed.FS

type Minimums struct {
	Summary    int `yaml:"summary"`
	Topics     int `yaml:"topics"`
	Flashcards int `yaml:"flashcards"`
	Questions  int `yaml:"questions"`
}

type Pack struct {
	Name           string                `yaml:"pack"`
	Version        int                   `yaml:"version"`
	Minimums       Minimums              `yaml:"minimums"`
	DraftSystem    string                `yaml:"draft_system"`
	ValidateSystem string                `yaml:"validate_system"`
	Modes          map[study.Mode]string `yaml:"modes"`
	Schema         string                `yaml:"schema"`
	OCRSystem      string                `yaml:"ocr_system"`
	OCRUser        string                `yaml:"ocr_user"`
}

var (
	loadOnce sync.Once
	loaded   *Pack
	loadErr  error
)

// Default returns the process-wide pack. STUDY_PROMPTS_YAML overrides the
// embedded file.
func Default() (*Pack, error) {
	loadOnce.Do(func() {
		var data []byte
		if path := strings.TrimSpace(os.Getenv(promptPackEnv)); path != "" {
			data, loadErr = os.ReadFile(path)
		} else {
			data, loadErr = promptFS.ReadFile("study_prompts.yaml")
		}
		if loadErr != nil {
			return
		}
		loaded, loadErr = Parse(data)
	})
	return loaded, loadErr
}

func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}
	return &p, nil
}

func (p *Pack) validate() error {
	if strings.TrimSpace(p.Name) != "study_prompts" {
		return fmt.Errorf("unexpected pack: %q", p.Name)
	}
	if strings.TrimSpace(p.DraftSystem) == "" || strings.TrimSpace(p.ValidateSystem) == "" {
		return errors.New("draft_system and validate_system are required")
	}
	if strings.TrimSpace(p.Schema) == "" {
		return errors.New("schema is required")
	}
	if strings.TrimSpace(p.OCRSystem) == "" {
		return errors.New("ocr_system is required")
	}
	for _, m := range []study.Mode{study.ModeFaithful, study.ModeDeepened, study.ModeExam} {
		if strings.TrimSpace(p.Modes[m]) == "" {
			return fmt.Errorf("mode %s has no instructions", m)
		}
	}
	if p.Minimums.Summary <= 0 || p.Minimums.Topics <= 0 || p.Minimums.Flashcards <= 0 || p.Minimums.Questions <= 0 {
		return errors.New("minimums must be positive")
	}
	return nil
}

// MinimumsText renders the count requirements as a prompt line.
func (p *Pack) MinimumsText() string {
	m := p.Minimums
	return fmt.Sprintf(
		"Produce at least %d summary points, %d map topics, %d flashcards and %d questions.",
		m.Summary, m.Topics, m.Flashcards, m.Questions,
	)
}

// DraftSystemPrompt joins the shared draft rules, the mode rules, the
// schema and the minimums.
func (p *Pack) DraftSystemPrompt(mode study.Mode) string {
	return joinBlocks(p.DraftSystem, p.Modes[mode], p.Schema, p.MinimumsText())
}

func (p *Pack) ValidateSystemPrompt(mode study.Mode) string {
	return joinBlocks(p.ValidateSystem, p.Modes[mode], p.Schema, p.MinimumsText())
}

func joinBlocks(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

// LabelChunk renders one chunk as the model sees it.
func LabelChunk(id, text string) string {
	return "[CHUNK_" + id + "]\n" + strings.TrimSpace(text)
}
