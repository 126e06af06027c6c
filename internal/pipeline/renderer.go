package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/cvtriage/internal/model"
)

// Renderer writes records to disk and prints one-line summaries
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes rec as indented JSON to path, creating parent directories
func (r *Renderer) RenderJSON(rec *model.Record, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a one-line status for rec
func (r *Renderer) RenderSummary(w io.Writer, rec *model.Record) {
	who := rec.Nombre
	if rec.Email != "" {
		who += " <" + rec.Email + ">"
	}

	if rec.Failed() {
		_, _ = fmt.Fprintf(w, "✗ %s: %s\n", who, rec.Error)
		return
	}

	parts := []string{fmt.Sprintf("match %.0f", rec.Match)}
	if rec.Seniority != "" {
		parts = append(parts, rec.Seniority)
	}
	if rec.AreaProfesional != "" {
		parts = append(parts, rec.AreaProfesional)
	}
	_, _ = fmt.Fprintf(w, "✓ %s | %s\n", who, strings.Join(parts, " | "))
}

// OutputPath names the JSON file for a source inside dir. index > 0
// prefixes the name so documents with the same base name do not collide.
func OutputPath(dir, source string, index int) string {
	base := filepath.Base(source)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	if index > 0 {
		base = fmt.Sprintf("%03d-%s", index, base)
	}
	return filepath.Join(dir, base+".json")
}
