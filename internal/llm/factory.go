package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(config)

	case "ollama-cli", "exec":
		return NewExecProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (supported: ollama, ollama-cli, openai, anthropic, gemini)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: ollama, ollama-cli, openai, anthropic, gemini)", config.Provider)
	}
}
