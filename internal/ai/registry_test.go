package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateProvider(t *testing.T) {
	got := TemplateProvider{}.Generate(Request{
		Prompt:      "How does photosynthesis work?",
		Label:       "Balanced",
		Temperature: 0.7,
	})
	assert.Equal(t, `Simulated Balanced response for prompt: "How does photosynthesis work?..." with temperature 0.70.`, got)
}

func TestTemplateProvider_TruncatesPrompt(t *testing.T) {
	long := "ααααααααααββββββββββγγγγγγγγγγδδδδδδδδδδεεεεεεεεεεζζζζζζζζζζηηηηη"
	got := TemplateProvider{}.Generate(Request{Prompt: long, Label: "Creative", Temperature: 0.9})
	assert.Contains(t, got, `"`+string([]rune(long)[:60])+`..."`)
	assert.NotContains(t, got, "η")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	p, err := r.Get(" Mock-Model ")
	require.NoError(t, err)
	assert.IsType(t, TemplateProvider{}, p)

	_, err = r.Get("gpt-x")
	require.Error(t, err)
	assert.IsType(t, TemplateProvider{}, r.Resolve("gpt-x"))

	r.Register("echo", ProviderFunc(func(req Request) string { return req.Prompt }))
	assert.Equal(t, "hi", r.Resolve("ECHO").Generate(Request{Prompt: "hi"}))
	assert.Equal(t, []string{"echo", MockModel}, r.Models())
}
