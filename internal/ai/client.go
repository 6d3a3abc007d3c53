// Package ai extracts transactions with a language model when no
// deterministic strategy recognizes a statement. The text is split into
// chunks, each chunk is sent with retry and an optional model downgrade,
// and whatever JSON comes back is recovered as far as possible.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("ai: no API key configured (set GEMINI_API_KEY)")

// Request is one model call: a system prompt plus one user message.
type Request struct {
	Model           string
	SystemPrompt    string
	UserMessage     string
	MaxOutputTokens int
}

// Response is the model's text and the tokens it cost.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is the model service boundary.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeminiClient calls the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	timeout time.Duration
}

var _ Client = (*GeminiClient)(nil)

// NewGeminiClient creates a client. timeout bounds each request; zero
// means no limit beyond ctx.
func NewGeminiClient(ctx context.Context, apiKey string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, timeout: timeout}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  int32(req.MaxOutputTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserMessage), config)
	if err != nil {
		return Response{}, fmt.Errorf("gemini %s: %w", req.Model, err)
	}

	resp := Response{Text: result.Text(), Model: req.Model}
	if u := result.UsageMetadata; u != nil {
		resp.InputTokens = int(u.PromptTokenCount)
		resp.OutputTokens = int(u.CandidatesTokenCount + u.ThoughtsTokenCount)
	}
	return resp, nil
}
