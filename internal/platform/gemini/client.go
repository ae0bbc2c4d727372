package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint; empty uses Google's.
	BaseURL string
}

// Client wraps the Gemini generate-content endpoint for single-turn text and
// image prompts. Failures are wrapped with apierr.ErrUpstream.
type Client struct {
	client  *genai.Client
	model   string
	log     *logger.Logger
	metrics *observability.Metrics
}

func New(ctx context.Context, cfg Config, log *logger.Logger, metrics *observability.Metrics) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{
		client:  client,
		model:   model,
		log:     log.With("service", "GeminiClient", "model", model),
		metrics: metrics,
	}, nil
}

func (c *Client) Model() string { return c.model }

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	return c.generate(ctx, "chat", contents)
}

// GenerateWithImage sends the image followed by the instruction text.
func (c *Client) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	return c.generate(ctx, "analyze", contents)
}

func (c *Client) generate(ctx context.Context, op string, contents []*genai.Content) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	c.metrics.ObserveAI(op, err, time.Since(start))
	if err != nil {
		c.log.Warn("GenAI generate failed", "op", op, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", fmt.Errorf("%w: gemini %s: %w", apierr.ErrUpstream, op, err)
	}
	text := ""
	if resp != nil {
		text = resp.Text()
	}
	c.log.Debug("GenAI generate ok", "op", op, "duration_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return text, nil
}
