package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cvtriage/internal/pipeline"
	"github.com/ppiankov/cvtriage/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	// role, repairJSON and saveToStore are defined in analyze.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Analyze every CV in a directory or list file",
	Long: `Batch analyzes many CVs:
- Collect .pdf, .docx, .html, .txt and .md files from a directory, or read
  a list file with one path or URL per line (# starts a comment)
- Analyze documents with a bounded number of workers
- Write one JSON record per document into the output directory

A document that fails never stops the others.

Example:
  cvtriage batch ./cvs
  cvtriage batch ./cvs --role "Data Engineer" --output-dir ./results
  cvtriage batch candidates.list --concurrency 4 --store`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for records (default: output.dir from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&role, "role", "", "target role to match every candidate against")
	batchCmd.Flags().BoolVar(&repairJSON, "repair", false, "try to repair truncated model output")
	batchCmd.Flags().BoolVar(&saveToStore, "store", false, "save records in the candidate database")
}

func runBatch(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommandFlags(cmd, cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	paths, err := worker.CollectDocuments(target)
	if err != nil {
		return fmt.Errorf("collect documents: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported documents found in %s", target)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  cvtriage Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s (%d documents)\n", target, len(paths))
	fmt.Fprintf(os.Stderr, "  Model:        %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	if role != "" {
		fmt.Fprintf(os.Stderr, "  Role:         %s\n", role)
	}
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(p.Reader(), p.Analyzer(), cfg.Concurrency.Workers)
	processor.SetRole(role)

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing with %d workers...\n\n", cfg.Concurrency.Workers)
	results := processor.ProcessPaths(ctx, paths)

	outputs := outputPaths(cfg.Output.Dir, paths)

	var analyzed, failed, unreadable int
	for i, res := range results {
		if res.Err != nil {
			unreadable++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Path, res.Err)
			continue
		}

		if res.Record.Failed() {
			failed++
		} else {
			analyzed++
		}

		if err := p.RenderRecord(res.Record, outputs[i], os.Stderr, cfg.Output.Verbose); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Path, err)
		}
	}

	if cfg.Store.Enabled {
		if err := saveRecords(ctx, cfg, results); err != nil {
			fmt.Fprintf(os.Stderr, "✗ store: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "\n✓ Saved %d records to %s\n", analyzed+failed, cfg.Store.DSN)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:        %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Analyzed:     %d\n", analyzed)
	fmt.Fprintf(os.Stderr, "  Unparsed:     %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Unreadable:   %d\n", unreadable)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// outputPaths names one JSON file per source. Sources sharing a base name
// are numbered by position.
func outputPaths(dir string, sources []string) []string {
	counts := make(map[string]int, len(sources))
	for _, src := range sources {
		counts[strings.ToLower(filepath.Base(pipeline.OutputPath("", src, 0)))]++
	}

	out := make([]string, len(sources))
	for i, src := range sources {
		index := 0
		if counts[strings.ToLower(filepath.Base(pipeline.OutputPath("", src, 0)))] > 1 {
			index = i + 1
		}
		out[i] = pipeline.OutputPath(dir, src, index)
	}
	return out
}
