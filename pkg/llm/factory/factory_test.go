package factory

import (
	"testing"

	"marketplace-assistant-be/pkg/llm/ollama"
	"marketplace-assistant-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	p, err = NewLLMProvider(Config{Provider: "openai", Model: "gpt-3.5-turbo", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &openai.Provider{}, p)

	p, err = NewLLMProvider(Config{Provider: "huggingface", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &openai.Provider{}, p)

	_, err = NewLLMProvider(Config{Provider: "bard"})
	assert.Error(t, err)
}
