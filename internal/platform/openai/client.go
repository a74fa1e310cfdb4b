package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/studyforge-backend/internal/platform/envutil"
	"github.com/yungbote/studyforge-backend/internal/platform/httpx"
	"github.com/yungbote/studyforge-backend/internal/platform/llm"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/platform/promptstyle"
)

// Client talks to the OpenAI Responses API and satisfies llm.Invoker.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	models     llm.Models
	httpClient *http.Client
	retry      httpx.Policy

	temperature *float64

	// Models that rejected temperature are remembered and sent without it.
	noTempMu   sync.RWMutex
	noTempSeen map[string]time.Time
	noTempTTL  time.Duration
}

var _ llm.Invoker = (*Client)(nil)

func NewClient(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/")

	fast := envutil.String("OPENAI_MODEL_FAST", envutil.String("OPENAI_MODEL", "gpt-4.1-mini"))
	strict := envutil.String("OPENAI_MODEL_STRICT", "gpt-4.1")

	timeout := envutil.Duration("OPENAI_TIMEOUT_SECONDS", 180*time.Second)

	var tempPtr *float64
	if !envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false) {
		temp := 0.2
		if v := strings.TrimSpace(os.Getenv("OPENAI_TEMPERATURE")); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				temp = f
			}
		}
		tempPtr = &temp
	}

	return &Client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		models:      llm.Models{Fast: fast, Strict: strict},
		httpClient:  &http.Client{Timeout: timeout},
		retry:       httpx.DefaultPolicy(envutil.Int("OPENAI_MAX_RETRIES", 4)),
		temperature: tempPtr,
		noTempSeen:  map[string]time.Time{},
		noTempTTL:   24 * time.Hour,
	}, nil
}

// -------------------- Responses API --------------------

type inputItem struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model        string      `json:"model"`
	Instructions string      `json:"instructions,omitempty"`
	Input        []inputItem `json:"input"`
	Text         struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

// Invoke maps an llm.Request onto one Responses API call.
func (c *Client) Invoke(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := c.models.For(req.Profile)
	ctx, span := otel.Tracer("studyforge/openai").Start(ctx, "openai.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.profile", string(req.Profile)),
		attribute.String("llm.mode", req.Mode),
	)

	body, err := c.buildRequest(model, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var resp responsesResponse
	if err := c.doWithTempFallback(ctx, body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", resp.Refusal)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, llm.ErrEmptyResponse
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
	)
	if resp.Model != "" {
		model = resp.Model
	}
	return llm.TextResponse(model, text), nil
}

func (c *Client) buildRequest(model string, req llm.Request) (*responsesRequest, error) {
	if model == "" {
		return nil, errors.New("openai: no model configured for profile " + string(req.Profile))
	}
	format := "text"
	if req.ResponseFormat == llm.ResponseFormatJSON {
		format = "json"
	}
	system, turns := llm.SystemAndUser(req.Messages)
	if len(turns) == 0 {
		return nil, errors.New("openai: request has no user turn")
	}

	out := &responsesRequest{
		Model:        model,
		Instructions: promptstyle.ApplySystem(system, format),
	}
	for _, m := range turns {
		out.Input = append(out.Input, inputItem{Role: m.Role, Content: contentParts(m, req.MediaResolution)})
	}
	if req.ResponseFormat == llm.ResponseFormatJSON {
		out.Text.Format = map[string]any{"type": "json_object"}
	}
	if c.temperature != nil && !c.modelIsNoTemp(model) {
		t := *c.temperature
		out.Temperature = &t
	}
	return out, nil
}

func contentParts(m llm.Message, res llm.MediaResolution) any {
	if len(m.Attachments) == 0 {
		return m.Text
	}
	parts := make([]map[string]any, 0, len(m.Attachments)+1)
	if strings.TrimSpace(m.Text) != "" {
		parts = append(parts, map[string]any{"type": "input_text", "text": m.Text})
	}
	for _, a := range m.Attachments {
		dataURL := "data:" + a.MimeType + ";base64," + a.Base64
		if a.IsImage() {
			parts = append(parts, map[string]any{
				"type":      "input_image",
				"image_url": dataURL,
				"detail":    imageDetail(res),
			})
			continue
		}
		name := a.Name
		if name == "" {
			name = "document.pdf"
		}
		parts = append(parts, map[string]any{
			"type":      "input_file",
			"filename":  name,
			"file_data": dataURL,
		})
	}
	return parts
}

func imageDetail(res llm.MediaResolution) string {
	switch res {
	case llm.MediaResolutionLow:
		return "low"
	case llm.MediaResolutionHigh:
		return "high"
	default:
		return "auto"
	}
}

// -------------------- transport --------------------

type openAIHTTPError struct {
	StatusCode int
	Body       string
	Wait       time.Duration
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (e *openAIHTTPError) RetryAfter() time.Duration { return e.Wait }

func (c *Client) doOnce(ctx context.Context, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw), Wait: httpx.ParseRetryAfter(resp.Header)}
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, body *responsesRequest, out *responsesResponse) error {
	policy := c.retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.log.Warn("OpenAI request retrying",
			"model", body.Model,
			"attempt", attempt,
			"max_retries", policy.MaxRetries,
			"sleep", wait.String(),
			"error", err.Error(),
		)
	}
	var raw []byte
	err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.doOnce(ctx, body)
		return err
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("openai decode error: %w", err)
	}
	return nil
}

// doWithTempFallback retries exactly once without temperature if the model rejects it.
func (c *Client) doWithTempFallback(ctx context.Context, body *responsesRequest, out *responsesResponse) error {
	err := c.do(ctx, body, out)
	if err == nil || body.Temperature == nil || !isUnsupportedTemperatureParam(err) {
		return err
	}
	c.noteNoTempModel(body.Model)
	body.Temperature = nil
	return c.do(ctx, body, out)
}

func isUnsupportedTemperatureParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, needle := range []string{"unsupported parameter", "unknown parameter", "not supported", "does not support", "only the default", "unsupported_value"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (c *Client) modelIsNoTemp(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	c.noTempMu.RLock()
	ts, ok := c.noTempSeen[m]
	c.noTempMu.RUnlock()
	return ok && time.Since(ts) < c.noTempTTL
}

func (c *Client) noteNoTempModel(model string) {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return
	}
	c.noTempMu.Lock()
	c.noTempSeen[m] = time.Now().UTC()
	c.noTempMu.Unlock()
}
