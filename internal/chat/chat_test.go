package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply      string
	err        error
	model      string
	prompt     string
	models     map[string][]Model
	listErrors map[string]error
	versions   []string
}

func (generator *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	generator.model = model
	generator.prompt = prompt
	return generator.reply, generator.err
}

func (generator *fakeGenerator) ListModels(_ context.Context, apiVersion string) ([]Model, error) {
	generator.versions = append(generator.versions, apiVersion)
	if err := generator.listErrors[apiVersion]; err != nil {
		return nil, err
	}
	return generator.models[apiVersion], nil
}

func TestReplyRelaysText(t *testing.T) {
	generator := &fakeGenerator{reply: "I build web apps."}
	service := NewService(generator, "gemini-1.5-flash", nil, nil)

	reply, err := service.Reply(context.Background(), "  what do you do?  ")
	require.NoError(t, err)
	assert.Equal(t, "I build web apps.", reply)
	assert.Equal(t, "models/gemini-1.5-flash", generator.model)
	assert.True(t, strings.HasPrefix(generator.prompt, "You are a helpful assistant for a creative portfolio website."))
	assert.True(t, strings.HasSuffix(generator.prompt, "\n\nUser: what do you do?\n\nAssistant:"))
}

func TestReplyRequiresMessage(t *testing.T) {
	generator := &fakeGenerator{reply: "unused"}
	service := NewService(generator, "", nil, nil)

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := service.Reply(context.Background(), message)
		assert.ErrorIs(t, err, ErrMessageRequired)
	}
	assert.Empty(t, generator.prompt)
}

func TestReplyWithoutGenerator(t *testing.T) {
	service := NewService(nil, "", nil, nil)

	_, err := service.Reply(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)

	// Blank messages are rejected before configuration is checked.
	_, err = service.Reply(context.Background(), " ")
	assert.ErrorIs(t, err, ErrMessageRequired)
}

func TestReplyUpstreamFailure(t *testing.T) {
	service := NewService(&fakeGenerator{err: errors.New("Gemini API error: 503")}, "", nil, nil)

	_, err := service.Reply(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrGenerateFailed)
	assert.NotContains(t, err.Error(), "503")
}

func TestReplyFallsBackOnEmptyText(t *testing.T) {
	service := NewService(&fakeGenerator{reply: "  "}, "", nil, nil)

	reply, err := service.Reply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)
}

func TestModelsPrefersV1(t *testing.T) {
	generator := &fakeGenerator{models: map[string][]Model{
		"v1": {{Name: "models/gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", SupportedMethods: []string{"generateContent"}}},
	}}
	service := NewService(generator, "", nil, nil)

	models, err := service.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "Gemini 1.5 Flash", models[0].DisplayName)
	assert.Equal(t, []string{"v1"}, generator.versions)
}

func TestModelsFallsBackToV1Beta(t *testing.T) {
	generator := &fakeGenerator{
		listErrors: map[string]error{"v1": errors.New("v1 error: 404")},
		models:     map[string][]Model{"v1beta": {{Name: "models/gemini-2.0-flash"}}},
	}
	service := NewService(generator, "", nil, nil)

	models, err := service.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "models/gemini-2.0-flash", models[0].Name)
	assert.Equal(t, []string{"v1", "v1beta"}, generator.versions)
}

func TestModelsBothVersionsFail(t *testing.T) {
	generator := &fakeGenerator{listErrors: map[string]error{
		"v1":     errors.New("down"),
		"v1beta": errors.New("down"),
	}}
	service := NewService(generator, "", nil, nil)

	_, err := service.Models(context.Background())
	assert.ErrorIs(t, err, ErrListFailed)
}

func TestModelsEmptyListIsNotNil(t *testing.T) {
	service := NewService(&fakeGenerator{}, "", nil, nil)

	models, err := service.Models(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, models)
	assert.Empty(t, models)
}

func TestModelPath(t *testing.T) {
	assert.Equal(t, "models/gemini-1.5-flash", ModelPath(""))
	assert.Equal(t, "models/gemini-2.0-flash", ModelPath("gemini-2.0-flash"))
	assert.Equal(t, "models/gemini-pro", ModelPath("models/gemini-pro"))
}
