package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cvtriage/internal/model"
	"github.com/ppiankov/cvtriage/internal/pipeline"
	"github.com/ppiankov/cvtriage/internal/store"
	"github.com/ppiankov/cvtriage/internal/worker"
)

var (
	role        string
	outJSON     string
	timeout     time.Duration
	repairJSON  bool
	saveToStore bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Analyze a single CV",
	Long: `Analyze reads one CV and produces a structured record:
- Extract and clean the document text
- Read the candidate's name and email from the document
- Ask the model for profile, skills, experience, seniority and area
- Recover the JSON object from the reply and normalize the match score

Without --role the model only detects the professional area and the match
is reported as 100.

Example:
  cvtriage analyze cv.pdf
  cvtriage analyze cv.pdf --role "Backend Engineer" --json ana.json
  cvtriage analyze https://example.com/cv.pdf --provider openai --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&role, "role", "", "target role to match the candidate against")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: print to stdout)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&repairJSON, "repair", false, "try to repair truncated model output")
	analyzeCmd.Flags().BoolVar(&saveToStore, "store", false, "save the record in the candidate database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommandFlags(cmd, cfg)

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Model:     %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		if role != "" {
			fmt.Fprintf(os.Stderr, "Role:      %s\n", role)
		}
		fmt.Fprintln(os.Stderr)
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	result, err := p.AnalyzeSource(ctx, source, role)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if cfg.Store.Enabled {
		if err := saveRecords(ctx, cfg, []*worker.DocumentResult{{Record: result.Record, Text: result.Text}}); err != nil {
			return err
		}
	}

	if outJSON == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Record); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		_ = p.RenderRecord(result.Record, "", os.Stderr, false)
		return nil
	}

	if err := p.RenderRecord(result.Record, outJSON, os.Stderr, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

// applyCommandFlags copies command-specific flags that were set onto cfg
func applyCommandFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if f := flags.Lookup("repair"); f != nil && f.Changed {
		cfg.Pipeline.RepairJSON = repairJSON
	}
	if f := flags.Lookup("store"); f != nil && f.Changed {
		cfg.Store.Enabled = saveToStore
	}
}

// buildPipeline wires the provider, limiter and pipeline for cfg
func buildPipeline(cfg *model.Config) (*pipeline.Pipeline, error) {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	provider, err := pipeline.BuildProvider(cfg, limiter)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.NewPipeline(cfg, provider, limiter, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return p, nil
}

// saveRecords stores every analyzed record
func saveRecords(ctx context.Context, cfg *model.Config, results []*worker.DocumentResult) error {
	s, err := store.Open(ctx, cfg.Store.DSN, slog.Default())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = s.Close() }()

	for _, res := range results {
		if res.Record == nil {
			continue
		}
		if err := s.Save(ctx, res.Record, res.Text); err != nil {
			return err
		}
	}
	return nil
}
