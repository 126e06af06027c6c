package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete cvtriage configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Identity     IdentityConfig     `yaml:"identity" mapstructure:"identity"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
}

// LLMConfig selects and tunes the inference backend
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // ollama, ollama-cli, openai, anthropic, gemini
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Command     string  `yaml:"command,omitempty" mapstructure:"command"` // Binary used by ollama-cli
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"`           // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// PipelineConfig bounds the analysis pipeline
type PipelineConfig struct {
	MaxPromptChars int  `yaml:"max_prompt_chars" mapstructure:"max_prompt_chars"` // Document budget for the prompt
	MaxRawChars    int  `yaml:"max_raw_chars" mapstructure:"max_raw_chars"`       // Raw reply kept on failure
	RepairJSON     bool `yaml:"repair_json" mapstructure:"repair_json"`           // Last-resort jsonrepair strategy
}

// IdentityConfig controls name extraction
type IdentityConfig struct {
	PrefixChars int    `yaml:"prefix_chars" mapstructure:"prefix_chars"`
	Recognizer  string `yaml:"recognizer" mapstructure:"recognizer"` // none, llm
}

// HTTPConfig is used when documents are fetched by URL
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the model reply cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds document-level parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // Local models usually handle one call at a time
}

// RateLimitingConfig limits inference calls per provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls rendering and logging
type OutputConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text, json
}

// StoreConfig controls result persistence
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "deepseek-r1",
			Command:     "ollama",
			Timeout:     300,
			MaxTokens:   2000,
			Temperature: 0.2,
		},
		Pipeline: PipelineConfig{
			MaxPromptChars: 4000,
			MaxRawChars:    500,
		},
		Identity: IdentityConfig{
			PrefixChars: 1000,
			Recognizer:  "none",
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "cvtriage/0.1 (+https://github.com/ppiankov/cvtriage)",
			MaxBodyBytes:  10_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskDir:   defaultCacheDir(),
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         1,
		},
		Output: OutputConfig{
			Dir:       "./cvtriage-results",
			LogFormat: "text",
		},
		Store: StoreConfig{
			Enabled: false,
			DSN:     "candidates.db",
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cvtriage")
	}
	return filepath.Join(dir, "cvtriage")
}
