package reasoning

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var _ Client = (*GeminiClient)(nil)

// GeminiClient uses the Gemini API with JSON response mode.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string {
	return "gemini:" + c.model
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(float32(req.Temperature)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
