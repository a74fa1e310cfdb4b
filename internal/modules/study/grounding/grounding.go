// Package grounding brings every generated item into a consistent shape and
// labels the ones that cite nothing from the source material.
package grounding

import (
	"strings"

	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/content"
)

// RequireSource reports whether an item must cite at least one chunk.
// Complement items in deepened mode are allowed to stand on their own.
func RequireSource(mode study.Mode, section study.Section) bool {
	return !(mode == study.ModeDeepened && section == study.SectionComplemento)
}

// Section resolves an item's section from its explicit marker and complement flag.
func Section(raw study.Section, isComplement bool) study.Section {
	s := study.Section(strings.ToUpper(strings.TrimSpace(string(raw))))
	if s == study.SectionComplemento || isComplement {
		return study.SectionComplemento
	}
	return study.SectionFiel
}

// CanonicalChunkID strips the label decorations a model may echo back
// ("[CHUNK_<id>]", "CHUNK_<id>") and lowercases the id.
func CanonicalChunkID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "[]")
	s = strings.TrimSpace(s)
	if len(s) > 6 && strings.EqualFold(s[:6], "CHUNK_") {
		s = s[6:]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// FilterSources keeps the ids present in valid, de-duplicated, first-seen order.
func FilterSources(ids []string, valid map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := CanonicalChunkID(raw)
		if id == "" {
			continue
		}
		if _, ok := valid[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ValidSet builds the lookup set from chunk ids.
func ValidSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if c := CanonicalChunkID(id); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// Normalize returns a copy of raw where every item has a resolved section,
// only valid source ids, and notFoundInMaterial set iff grounding was
// required and nothing valid was cited. Ungrounded items are kept.
func Normalize(raw content.Bundle, validChunkIDs []string, mode study.Mode) content.Bundle {
	valid := ValidSet(validChunkIDs)
	out := clone(raw)
	for _, it := range out.Items() {
		g := it.Ground()
		g.Section = Section(g.Section, g.IsComplement)
		g.IsComplement = g.Section == study.SectionComplemento
		g.SourceChunkIDs = FilterSources(g.SourceChunkIDs, valid)
		g.NotFoundInMaterial = RequireSource(mode, g.Section) && len(g.SourceChunkIDs) == 0
	}
	return out
}

func clone(b content.Bundle) content.Bundle {
	out := content.Bundle{
		Summary:    append([]content.SummaryPoint(nil), b.Summary...),
		Map:        content.ContentMap{Topics: append([]content.Topic(nil), b.Map.Topics...)},
		Flashcards: append([]content.Flashcard(nil), b.Flashcards...),
		Questions:  append([]content.Question(nil), b.Questions...),
	}
	return out
}
