// Package gemini extracts named entities through Google's Gemini API. It is
// an optional replacement for the dictionary extractor.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"google.golang.org/genai"

	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/entity"
	"github.com/edgard/intakebot/internal/langdetect"
	"github.com/edgard/intakebot/internal/resilience"
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client implements entity.Extractor on top of the Gemini API.
type Client struct {
	generate      generateFunc
	breaker       *resilience.Breaker
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	maxRetries    int
	retryDelay    time.Duration
	timeout       time.Duration
}

var _ entity.Extractor = (*Client)(nil)

var entitySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"text":  {Type: genai.TypeString, Description: "The entity exactly as it appears in the message."},
		"label": {Type: genai.TypeString, Enum: []string{string(entity.LabelPerson), string(entity.LabelOrganization), string(entity.LabelLocation)}},
	},
	Required: []string{"text", "label"},
}

var entityListSchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "Named entities found in the message.",
	Items:       entitySchema,
}

// NewClient creates a Gemini entity extractor.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models.GenerateContent, cfg, log)
	c.log.Info("Gemini entity extractor initialized", "model", cfg.ModelName)
	return c, nil
}

func newClient(generate generateFunc, cfg config.GeminiConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	temperature := cfg.Temperature
	return &Client{
		generate: generate,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "gemini",
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
		}, log),
		log: log.With("component", "gemini_client"),
		contentConfig: &genai.GenerateContentConfig{
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   entityListSchema,
		},
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
		timeout:    cfg.Timeout,
	}
}

// Extract asks the model for the entities in text.
func (c *Client) Extract(ctx context.Context, text string, lang langdetect.Tag) ([]entity.Entity, error) {
	var langName string
	switch lang {
	case langdetect.English:
		langName = "English"
	case langdetect.Russian:
		langName = "Russian"
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedLanguage, lang)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := *c.contentConfig
	cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: fmt.Sprintf(EntityExtractorSystemInstruction, langName)}}}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, contents, &cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini entity extraction failed: %w", err)
	}

	jsonText, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return nil, err
	}

	var raw []entity.Entity
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse entities JSON from Gemini response", "error", err, "response_text", jsonText)
		return nil, fmt.Errorf("invalid entities JSON received: %w", err)
	}

	entities := make([]entity.Entity, 0, len(raw))
	for _, e := range raw {
		e.Text = strings.TrimSpace(e.Text)
		e.Label = entity.Label(strings.ToUpper(string(e.Label)))
		// Only spans literally present in text are kept.
		if e.Text == "" || !strings.Contains(text, e.Text) {
			continue
		}
		entities = append(entities, e)
	}
	c.log.DebugContext(ctx, "Entities extracted", "received", len(raw), "kept", len(entities), "language", lang)
	return entities, nil
}

func isRetriable(err error) bool {
	var apiErr *genai.APIError
	return errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503)
}

func (c *Client) generateContentWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(
			func() error {
				var err error
				resp, err = c.generate(ctx, c.modelName, contents, cfg)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(uint(c.maxRetries)+1),
			retry.Delay(c.retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(isRetriable),
			retry.OnRetry(func(n uint, err error) {
				c.log.InfoContext(ctx, "Retrying Gemini API call", "attempt", n+1, "max_retries", c.maxRetries, "delay", c.retryDelay, "error", err)
			}),
		)
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini API call failed", "error", err, "retriable", isRetriable(err))
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return resp, nil
}

func (c *Client) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("gemini returned no response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("entity extraction blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("entity extraction returned no content, finish reason: %s", finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("entity extraction returned empty text")
	}
	return text, nil
}
