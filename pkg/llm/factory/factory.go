package factory

import (
	"fmt"
	"time"

	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/llm/ollama"
	"marketplace-assistant-be/pkg/llm/openai"
)

// Config selects and configures a generation backend
type Config struct {
	Provider string // "ollama" | "openai" | "huggingface"
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	case "openai":
		return openai.NewProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case "huggingface":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://router.huggingface.co/v1" // Default Router URL
		}
		return openai.NewProvider(cfg.APIKey, baseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
