package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/cvtriage/internal/model"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile     string
	verbose     bool
	logFormat   string
	llmProvider string
	llmModel    string
	noCache     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cvtriage",
	Short: "cvtriage - structured CV analysis with a language model",
	Long: `cvtriage reads CVs (PDF, DOCX, HTML, text), asks a language model for a
structured profile, and normalizes whatever comes back into one JSON record
per candidate: profile, skills, experience, seniority, professional area and
a 0-100 match score for an optional target role.

The candidate's name and email are always read from the document itself,
even when the model reply cannot be used.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(os.Stderr, viper.GetBool("output.verbose"), viper.GetString("output.log_format")))
	},
}

// Execute runs the root command; canceling ctx stops in-flight analyses
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of cvtriage.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cvtriage %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cvtriage/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&llmProvider, "provider", "", "LLM provider (ollama, ollama-cli, openai, anthropic, gemini)")
	flags.StringVar(&llmModel, "model", "", "LLM model name")
	flags.BoolVar(&noCache, "no-cache", false, "disable the model reply cache")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("output.log_format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// A .env in the working directory never overrides the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".cvtriage"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CVTRIAGE_LLM_MODEL overrides llm.model, and so on
	viper.SetEnvPrefix("CVTRIAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration from viper
func loadConfig() (*model.Config, error) {
	return configFrom(viper.GetViper())
}

func configFrom(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	applyProviderEnv(cfg)

	return cfg, nil
}

// applyProviderEnv fills provider credentials from the conventional
// variables when the config does not set them
func applyProviderEnv(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "gemini", "google":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// setDefaults registers every config key so env overrides resolve
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.command", cfg.LLM.Command)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.http_proxy", cfg.LLM.HTTPProxy)
	v.SetDefault("llm.https_proxy", cfg.LLM.HTTPSProxy)
	v.SetDefault("llm.no_proxy", cfg.LLM.NoProxy)

	v.SetDefault("pipeline.max_prompt_chars", cfg.Pipeline.MaxPromptChars)
	v.SetDefault("pipeline.max_raw_chars", cfg.Pipeline.MaxRawChars)
	v.SetDefault("pipeline.repair_json", cfg.Pipeline.RepairJSON)

	v.SetDefault("identity.prefix_chars", cfg.Identity.PrefixChars)
	v.SetDefault("identity.recognizer", cfg.Identity.Recognizer)

	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", cfg.HTTP.MaxBodyBytes)
	v.SetDefault("http.respect_robots", cfg.HTTP.RespectRobots)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	v.SetDefault("cache.disk_dir", cfg.Cache.DiskDir)
	v.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)

	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)

	v.SetDefault("rate_limiting.requests_per_second", cfg.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)

	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.verbose", cfg.Output.Verbose)
	v.SetDefault("output.log_format", cfg.Output.LogFormat)

	v.SetDefault("store.enabled", cfg.Store.Enabled)
	v.SetDefault("store.dsn", cfg.Store.DSN)
}

// newLogger builds the process logger; verbose enables debug events
func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
