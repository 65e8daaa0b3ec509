package chat

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const defaultAPIVersion = "v1"

// GeminiConfig configures the Gemini Developer API client.
type GeminiConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiGenerator calls the Gemini Developer API through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
}

var _ Generator = (*GeminiGenerator)(nil)

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: defaultAPIVersion,
			BaseURL:    cfg.BaseURL,
		},
		HTTPClient: cfg.HTTPClient,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (generator *GeminiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := generator.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}
	return firstText(resp), nil
}

func (generator *GeminiGenerator) ListModels(ctx context.Context, apiVersion string) ([]Model, error) {
	page, err := generator.client.Models.List(ctx, &genai.ListModelsConfig{
		HTTPOptions: &genai.HTTPOptions{APIVersion: apiVersion},
		PageSize:    1000,
	})
	if err != nil {
		return nil, fmt.Errorf("%s error: %w", apiVersion, err)
	}

	models := make([]Model, 0, len(page.Items))
	for _, item := range page.Items {
		if item == nil {
			continue
		}
		methods := item.SupportedActions
		if methods == nil {
			methods = []string{}
		}
		models = append(models, Model{
			Name:             item.Name,
			DisplayName:      item.DisplayName,
			SupportedMethods: methods,
		})
	}
	return models, nil
}

// firstText returns the first part of the first candidate, or "" when the
// response has an unexpected shape.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return ""
	}
	return content.Parts[0].Text
}
