package llm

import (
	"context"
	"time"

	"github.com/ppiankov/cvtriage/internal/model"
)

// Provider is the opaque text-in/text-out inference call
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends prompt to the model and returns its complete output
	Generate(ctx context.Context, prompt string) (*Reply, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Reply is the raw output of one inference call
type Reply struct {
	// Stdout is the model's text; only this is parsed
	Stdout string `json:"stdout"`

	// Stderr carries diagnostics from the backend; advisory only
	Stderr string `json:"stderr,omitempty"`

	// Model is the model that produced the reply
	Model string `json:"model,omitempty"`

	// TokensUsed tracks token consumption when the backend reports it
	TokensUsed int `json:"tokens_used,omitempty"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "ollama", "ollama-cli", "openai", "anthropic", "gemini"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI, Anthropic and Gemini
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Command and Args run the model locally (ollama-cli). Args default to
	// ["run", Model].
	Command string
	Args    []string

	// Timeout for a single call, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// SystemPrompt is sent to chat-style backends
const SystemPrompt = "You analyze CVs and answer with exactly one valid JSON object and nothing else."

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "ollama",
		Model:       "deepseek-r1",
		Command:     "ollama",
		Timeout:     300,
		MaxTokens:   2000,
		Temperature: 0.2,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Command:     c.Command,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
		NoProxy:     c.NoProxy,
	}
}

func (c Config) timeout(def time.Duration) time.Duration {
	if c.Timeout <= 0 {
		return def
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return 2000
	}
	return c.MaxTokens
}
