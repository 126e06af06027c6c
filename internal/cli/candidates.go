package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cvtriage/internal/store"
)

var (
	candidatesJSON bool
	candidatesXLSX string
	storeDSN       string
)

// candidatesCmd represents the candidates command
var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List candidates saved in the database",
	Long: `List the records saved by 'analyze --store' and 'batch --store',
newest first.

Example:
  cvtriage candidates
  cvtriage candidates --json > candidates.json
  cvtriage candidates --xlsx shortlist.xlsx
  cvtriage candidates clear`,
	Args: cobra.NoArgs,
	RunE: runCandidates,
}

var candidatesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved candidate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		n, err := s.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Deleted %d candidates\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.AddCommand(candidatesClearCmd)

	candidatesCmd.PersistentFlags().StringVar(&storeDSN, "db", "", "database path (default: store.dsn from config)")
	candidatesCmd.Flags().BoolVar(&candidatesJSON, "json", false, "print records as JSON")
	candidatesCmd.Flags().StringVar(&candidatesXLSX, "xlsx", "", "export candidates to a spreadsheet at this path")
}

func runCandidates(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	candidates, err := s.List(cmd.Context())
	if err != nil {
		return err
	}

	if candidatesXLSX != "" {
		f, err := os.Create(candidatesXLSX)
		if err != nil {
			return fmt.Errorf("create spreadsheet: %w", err)
		}
		if err := store.ExportXLSX(f, candidates); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close spreadsheet: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Exported %d candidates to %s\n", len(candidates), candidatesXLSX)
		return nil
	}

	if candidatesJSON {
		records := make([]any, 0, len(candidates))
		for _, c := range candidates {
			records = append(records, c.Record)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "No candidates saved yet")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL\tMATCH\tSENIORITY\tAREA\tROLE\tANALYZED")
	for _, c := range candidates {
		rec := c.Record
		match := fmt.Sprintf("%.0f", rec.Match)
		if rec.Failed() {
			match = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Nombre,
			dash(rec.Email),
			match,
			dash(rec.Seniority),
			dash(rec.AreaProfesional),
			dash(rec.Role),
			c.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}

func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dsn := cfg.Store.DSN
	if storeDSN != "" {
		dsn = storeDSN
	}
	if _, err := os.Stat(dsn); err != nil && !strings.HasPrefix(dsn, "file:") {
		return nil, fmt.Errorf("no candidate database at %s (run analyze or batch with --store first)", dsn)
	}

	s, err := store.Open(cmd.Context(), dsn, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
