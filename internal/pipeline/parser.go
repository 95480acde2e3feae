package pipeline

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// InferenceResult is the raw text returned by the model plus token accounting.
type InferenceResult struct {
	Text            string
	Model           string
	PromptTokens    int
	CandidateTokens int
}

// Inferer sends a prompt and one image to a multimodal model and returns its text.
// Implementations may fail on network errors, timeouts or quota.
type Inferer interface {
	Infer(ctx context.Context, prompt string, img DecodedImage) (*InferenceResult, error)
}

// GeminiInferer is the Inferer backed by the Gemini API.
type GeminiInferer struct {
	client *genai.Client
	model  string
}

// NewGeminiInferer creates a Gemini client authenticated with apiKey.
func NewGeminiInferer(ctx context.Context, apiKey, model string) (*GeminiInferer, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiInferer: create genai client: %w", err)
	}
	return &GeminiInferer{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *GeminiInferer) Model() string {
	return g.model
}

// Infer asks the model for a JSON response describing the receipt in img.
func (g *GeminiInferer) Infer(ctx context.Context, prompt string, img DecodedImage) (*InferenceResult, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: img.MIMEType,
						Data:     img.Data,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("Infer: generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("Infer: %w", ErrEmptyResponse)
	}

	result := &InferenceResult{Text: text, Model: g.model}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CandidateTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// RecoverJSON extracts the JSON payload from a model response that may carry
// prose or code fences around it. The payload runs from the earliest '{' or '['
// to the last matching closer after it, inclusive. The slice is not validated.
func RecoverJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", ErrNoJSONStart
	}

	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}

	end := strings.LastIndex(s[start:], closer)
	if end == -1 {
		return "", fmt.Errorf("%w: expected %q", ErrNoJSONEnd, closer)
	}
	return s[start : start+end+1], nil
}
