package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON tries a strict parse first; on failure it strips one fenced
// code block wrapper (```json ... ```) and retries once.
func DecodeJSON(content string, v any) error {
	raw := strings.TrimSpace(content)
	if raw == "" {
		return ErrEmptyResponse
	}
	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}
	stripped, ok := StripFence(raw)
	if !ok {
		return fmt.Errorf("llm: decode json: %w", err)
	}
	if err2 := json.Unmarshal([]byte(stripped), v); err2 != nil {
		return fmt.Errorf("llm: decode fenced json: %w", err2)
	}
	return nil
}

// StripFence removes a leading ``` marker line (with optional language tag)
// and a trailing ``` marker.
func StripFence(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		tag := strings.TrimSpace(s[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s), true
}
