package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/studyforge-backend/internal/platform/envutil"
	"github.com/yungbote/studyforge-backend/internal/platform/httpx"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/platform/promptstyle"
)

// Client adapts the Gemini SDK to llm.Invoker.
type Client struct {
	log    *logger.Logger
	client *genai.Client
	models llm.Models
	temp   float32
	retry  httpx.Policy
}

var _ llm.Invoker = (*Client)(nil)

func NewClient(ctx context.Context, log *logger.Logger) (*Client, error) {
	apiKey := envutil.String("GEMINI_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{
		log:    log.With("service", "GeminiClient"),
		client: cl,
		models: llm.Models{
			Fast:   envutil.String("GEMINI_MODEL_FAST", "gemini-1.5-flash"),
			Strict: envutil.String("GEMINI_MODEL_STRICT", "gemini-1.5-pro"),
		},
		temp:  0.2,
		retry: retryPolicy(envutil.Int("GEMINI_MAX_RETRIES", 3)),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Invoke flattens the conversation into a single GenerateContent call. The
// SDK exposes no media resolution knob, so MediaResolution is ignored here.
func (c *Client) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	name := c.models.For(req.Profile)
	m := c.client.GenerativeModel(name)
	m.SetTemperature(c.temp)

	format := "text"
	if req.ResponseFormat == llm.ResponseFormatJSON {
		m.ResponseMIMEType = "application/json"
		format = "json"
	}
	system, turns := llm.SystemAndUser(req.Messages)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(promptstyle.ApplySystem(system, format))}}
	}

	parts, err := toParts(turns)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("gemini: request has no user content")
	}

	policy := c.retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.log.Warn("Gemini request retrying", "model", name, "attempt", attempt, "sleep", wait.String(), "error", err.Error())
	}
	var resp *genai.GenerateContentResponse
	err = policy.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = m.GenerateContent(ctx, parts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, llm.ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return nil, llm.ErrEmptyResponse
	}
	return llm.TextResponse(name, b.String()), nil
}

func toParts(turns []llm.Message) ([]genai.Part, error) {
	var parts []genai.Part
	for _, t := range turns {
		for _, a := range t.Attachments {
			data, err := base64.StdEncoding.DecodeString(a.Base64)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode attachment: %w", err)
			}
			parts = append(parts, genai.Blob{MIMEType: a.MimeType, Data: data})
		}
		if strings.TrimSpace(t.Text) != "" {
			parts = append(parts, genai.Text(t.Text))
		}
	}
	return parts, nil
}

func retryPolicy(maxRetries int) httpx.Policy {
	p := httpx.DefaultPolicy(maxRetries)
	p.Retryable = retryable
	return p
}

// retryable classifies both gRPC and REST transport failures.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return httpx.IsRetryableHTTPStatus(gerr.Code)
	}
	return httpx.IsRetryableError(err)
}
