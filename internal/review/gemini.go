package review

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiModel is the Model backed by the Gemini API. Credentials come from the
// environment (GOOGLE_API_KEY, or GOOGLE_GENAI_USE_VERTEXAI with a project).
type GeminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini client for the named model.
func NewGeminiModel(ctx context.Context, modelName string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, name: modelName}, nil
}

// Generate sends one user turn and returns the reply text.
func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GeminiModel.Generate: %w", err)
	}
	return resp.Text(), nil
}
