// Package content holds the typed artifact payloads. Every variant is
// decoded by its own lenient parser: missing or mistyped fields fall back to
// zero values instead of failing the whole bundle.
package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
)

// Grounding is shared by every item.
type Grounding struct {
	Section            study.Section `json:"section"`
	IsComplement       bool          `json:"isComplement,omitempty"`
	SourceChunkIDs     []string      `json:"sourceChunkIds"`
	NotFoundInMaterial bool          `json:"notFoundInMaterial"`
}

func (g *Grounding) Ground() *Grounding { return g }

type Content interface {
	Type() study.ArtifactType
	Ground() *Grounding
}

type SummaryPoint struct {
	Text string `json:"text"`
	Grounding
}

func (SummaryPoint) Type() study.ArtifactType { return study.ArtifactSummary }

type Topic struct {
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
	Grounding
}

func (Topic) Type() study.ArtifactType { return study.ArtifactContentMap }

type ContentMap struct {
	Topics []Topic `json:"topics"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Hint  string `json:"hint,omitempty"`
	Grounding
}

func (Flashcard) Type() study.ArtifactType { return study.ArtifactFlashcard }

type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Grounding
}

func (Question) Type() study.ArtifactType { return study.ArtifactQuestion }

// Bundle is one generation result.
type Bundle struct {
	Summary    []SummaryPoint `json:"summary"`
	Map        ContentMap     `json:"map"`
	Flashcards []Flashcard    `json:"flashcards"`
	Questions  []Question     `json:"questions"`
}

func (b *Bundle) Len() int {
	return len(b.Summary) + len(b.Map.Topics) + len(b.Flashcards) + len(b.Questions)
}

// Items returns pointers to every grounded item in the bundle.
func (b *Bundle) Items() []Content {
	out := make([]Content, 0, b.Len())
	for i := range b.Summary {
		out = append(out, &b.Summary[i])
	}
	for i := range b.Map.Topics {
		out = append(out, &b.Map.Topics[i])
	}
	for i := range b.Flashcards {
		out = append(out, &b.Flashcards[i])
	}
	for i := range b.Questions {
		out = append(out, &b.Questions[i])
	}
	return out
}

type object map[string]json.RawMessage

// DecodeBundle parses a model response object. Only a non-object top level
// is an error.
func DecodeBundle(raw []byte) (Bundle, error) {
	var top object
	if err := json.Unmarshal(raw, &top); err != nil {
		return Bundle{}, fmt.Errorf("content: bundle is not a JSON object: %w", err)
	}
	var b Bundle
	for _, o := range top.objects("summary", "summaries") {
		if p := decodeSummary(o); strings.TrimSpace(p.Text) != "" {
			b.Summary = append(b.Summary, p)
		}
	}
	mapObj := top.object("map", "contentMap", "content_map")
	topics := mapObj.objects("topics")
	if len(topics) == 0 {
		topics = top.objects("topics")
	}
	for _, o := range topics {
		if tp := decodeTopic(o); strings.TrimSpace(tp.Title) != "" {
			b.Map.Topics = append(b.Map.Topics, tp)
		}
	}
	for _, o := range top.objects("flashcards", "cards") {
		if fc := decodeFlashcard(o); fc.Front != "" && fc.Back != "" {
			b.Flashcards = append(b.Flashcards, fc)
		}
	}
	for _, o := range top.objects("questions", "quiz") {
		if q := decodeQuestion(o); strings.TrimSpace(q.Prompt) != "" {
			b.Questions = append(b.Questions, q)
		}
	}
	return b, nil
}

// Decode reads a stored artifact payload back into its variant.
func Decode(t study.ArtifactType, raw []byte) (Content, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("content: %s payload: %w", t, err)
	}
	switch t {
	case study.ArtifactSummary:
		p := decodeSummary(o)
		return &p, nil
	case study.ArtifactContentMap:
		tp := decodeTopic(o)
		return &tp, nil
	case study.ArtifactFlashcard:
		fc := decodeFlashcard(o)
		return &fc, nil
	case study.ArtifactQuestion:
		q := decodeQuestion(o)
		return &q, nil
	}
	return nil, fmt.Errorf("content: unknown artifact type %q", t)
}

func decodeGrounding(o object) Grounding {
	return Grounding{
		Section:            study.Section(strings.ToUpper(o.str("section"))),
		IsComplement:       o.boolean("isComplement", "is_complement"),
		SourceChunkIDs:     o.strings("sourceChunkIds", "source_chunk_ids", "sources"),
		NotFoundInMaterial: o.boolean("notFoundInMaterial", "not_found_in_material"),
	}
}

func decodeSummary(o object) SummaryPoint {
	return SummaryPoint{Text: o.str("text", "point", "content"), Grounding: decodeGrounding(o)}
}

func decodeTopic(o object) Topic {
	subs := o.strings("subtopics", "children")
	if subs == nil {
		subs = []string{}
	}
	return Topic{Title: o.str("title", "topic", "name"), Subtopics: subs, Grounding: decodeGrounding(o)}
}

func decodeFlashcard(o object) Flashcard {
	return Flashcard{
		Front:     strings.TrimSpace(o.str("front", "question")),
		Back:      strings.TrimSpace(o.str("back", "answer")),
		Hint:      o.str("hint"),
		Grounding: decodeGrounding(o),
	}
}

func decodeQuestion(o object) Question {
	q := Question{
		Prompt:      o.str("prompt", "question", "stem"),
		Options:     o.strings("options", "choices"),
		AnswerIndex: o.integer("answerIndex", "answer_index", "correctIndex"),
		Explanation: o.str("explanation"),
		Difficulty:  o.str("difficulty"),
		Grounding:   decodeGrounding(o),
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		q.AnswerIndex = 0
	}
	return q
}

func (o object) raw(keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := o[k]; ok && len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

func (o object) str(keys ...string) string {
	v := o.raw(keys...)
	if v == nil {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	return strings.Trim(string(v), `"`)
}

func (o object) boolean(keys ...string) bool {
	v := o.raw(keys...)
	if v == nil {
		return false
	}
	var b bool
	if json.Unmarshal(v, &b) == nil {
		return b
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
	}
	return b
}

func (o object) integer(keys ...string) int {
	v := o.raw(keys...)
	if v == nil {
		return 0
	}
	var f float64
	if json.Unmarshal(v, &f) == nil {
		return int(f)
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n
	}
	return 0
}

// strings accepts an array of strings, an array of scalars, or a single string.
func (o object) strings(keys ...string) []string {
	v := o.raw(keys...)
	if v == nil {
		return nil
	}
	var list []any
	if json.Unmarshal(v, &list) == nil {
		out := make([]string, 0, len(list))
		for _, x := range list {
			switch t := x.(type) {
			case string:
				out = append(out, t)
			case float64:
				out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
			}
		}
		return out
	}
	var s string
	if json.Unmarshal(v, &s) == nil && strings.TrimSpace(s) != "" {
		return []string{s}
	}
	return nil
}

func (o object) object(keys ...string) object {
	v := o.raw(keys...)
	var out object
	if v != nil {
		_ = json.Unmarshal(v, &out)
	}
	return out
}

func (o object) objects(keys ...string) []object {
	v := o.raw(keys...)
	if v == nil {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(v, &items) != nil {
		return nil
	}
	out := make([]object, 0, len(items))
	for _, it := range items {
		var obj object
		if json.Unmarshal(it, &obj) == nil {
			out = append(out, obj)
			continue
		}
		// Bare strings are accepted as summary text or topic titles.
		var s string
		if json.Unmarshal(it, &s) == nil && strings.TrimSpace(s) != "" {
			q, _ := json.Marshal(s)
			out = append(out, object{"text": q, "title": q, "prompt": q})
		}
	}
	return out
}
