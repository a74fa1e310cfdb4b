// Package llm defines the call-and-JSON-response boundary that the study
// pipeline depends on. Providers (OpenAI, Gemini) adapt to Invoker; nothing
// upstream knows which model answered.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Profile selects a model tier. Fast drafts, strict validates.
type Profile string

const (
	ProfileFast   Profile = "fast"
	ProfileStrict Profile = "strict"
)

// MediaResolution controls how much detail a provider spends on attached
// images or documents.
type MediaResolution string

const (
	MediaResolutionDefault MediaResolution = ""
	MediaResolutionLow     MediaResolution = "low"
	MediaResolutionMedium  MediaResolution = "medium"
	MediaResolutionHigh    MediaResolution = "high"
)

// ResponseFormat is either plain text or a JSON object.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json_object"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Attachment is inline binary input (a PDF or an image), base64 encoded.
type Attachment struct {
	MimeType string
	Base64   string
	Name     string
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.MimeType), "image/")
}

type Message struct {
	Role        string
	Text        string
	Attachments []Attachment
}

type Request struct {
	Profile         Profile
	Mode            string
	ResponseFormat  ResponseFormat
	MediaResolution MediaResolution
	Messages        []Message
}

type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Choice struct {
	Message ChoiceMessage `json:"message"`
}

type Response struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Content returns choices[0].message.content, or "" when absent.
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// TextResponse wraps plain output into the single-choice response shape.
func TextResponse(model, content string) *Response {
	return &Response{
		Model:   model,
		Choices: []Choice{{Message: ChoiceMessage{Role: RoleAssistant, Content: content}}},
	}
}

type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (*Response, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

var ErrEmptyResponse = errors.New("llm: empty response content")

// Models maps profiles to provider model ids.
type Models struct {
	Fast   string
	Strict string
}

func (m Models) For(p Profile) string {
	if p == ProfileStrict && strings.TrimSpace(m.Strict) != "" {
		return strings.TrimSpace(m.Strict)
	}
	return strings.TrimSpace(m.Fast)
}

// SystemAndUser splits the conversation into a joined system prompt and the
// remaining turns, which is the shape both providers consume.
func SystemAndUser(msgs []Message) (string, []Message) {
	var sys []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if t := strings.TrimSpace(m.Text); t != "" {
				sys = append(sys, t)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}
