package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ppiankov/cvtriage/internal/util"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = config.BaseURL
	}

	// NewClient does no I/O for the Gemini API backend
	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that the configured model can be resolved
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.Models.Get(ctx, p.config.Model, nil); err != nil {
		slog.Warn("llm.gemini.unavailable", "model", p.config.Model, "error", err)
		return false
	}
	return true
}

// Generate sends prompt through the GenerateContent API
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout(60*time.Second))
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(p.config.Temperature)),
		MaxOutputTokens:   int32(p.config.maxTokens()),
		ResponseMIMEType:  "application/json",
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		genConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	reply := &Reply{
		Stdout: resp.Text(),
		Model:  p.config.Model,
	}
	if resp.ModelVersion != "" {
		reply.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		reply.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	if fr := resp.Candidates[0].FinishReason; fr != "" && fr != genai.FinishReasonStop {
		reply.Stderr = "finish_reason: " + strings.ToLower(string(fr))
	}
	return reply, nil
}
