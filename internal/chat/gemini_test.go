package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestFirstText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{name: "no content", resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, want: ""},
		{
			name: "first part",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "hello"}, {Text: "ignored"}}},
			}}},
			want: "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstText(tt.resp))
		})
	}
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiGeneratorGenerate(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": "Happy to help."}},
				},
			}},
		})
	}))
	t.Cleanup(server.Close)

	generator, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)

	text, err := generator.Generate(context.Background(), "models/gemini-1.5-flash", Prompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Happy to help.", text)
	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-1.5-flash:generateContent"), gotPath)
	assert.Contains(t, gotBody, "User: hi")
}

func TestGeminiGeneratorUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	t.Cleanup(server.Close)

	generator, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:     "bad-key",
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), "models/gemini-1.5-flash", "hi")
	assert.Error(t, err)
}
