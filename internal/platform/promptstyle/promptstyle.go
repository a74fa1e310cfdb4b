package promptstyle

import "strings"

const marker = "STUDYFORGE_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to system prompts. Prompts that
// already carry the marker are returned unchanged.
func ApplySystem(system string, format string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	format = strings.ToLower(strings.TrimSpace(format))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful study assistant working only from the student's own material.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nNever invent citations; cite only identifiers that appear in the input.")
	if format == "json" {
		b.WriteString("\nReturn a single JSON object and nothing else: no prose, no markdown fences.")
	} else {
		b.WriteString("\nReturn plain text without commentary.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
