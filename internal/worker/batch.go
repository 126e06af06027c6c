package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/cvtriage/internal/docreader"
	"github.com/ppiankov/cvtriage/internal/model"
)

// ErrEmptyDocument is returned when a document yields no text
var ErrEmptyDocument = errors.New("empty document")

// Reader extracts the text of a document path or URL
type Reader interface {
	Read(ctx context.Context, source string) (string, error)
}

// Analyzer turns document text into a record
type Analyzer interface {
	Analyze(ctx context.Context, text, role string) *model.Record
}

// DocumentJob reads and analyzes one document
type DocumentJob struct {
	Index    int
	Path     string
	Role     string
	Reader   Reader
	Analyzer Analyzer
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	text, err := j.Reader.Read(ctx, j.Path)
	if err != nil {
		return &DocumentResult{Index: j.Index, Path: j.Path, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return &DocumentResult{Index: j.Index, Path: j.Path, Err: fmt.Errorf("%s: %w", j.Path, ErrEmptyDocument)}
	}

	rec := j.Analyzer.Analyze(ctx, text, j.Role)
	rec.Source = j.Path

	return &DocumentResult{
		Index:  j.Index,
		Path:   j.Path,
		Record: rec,
		Text:   text,
	}
}

// DocumentResult is the outcome of one document. Err is set only when the
// document could not be read; an analysis failure is a failed Record.
type DocumentResult struct {
	Index  int
	Path   string
	Record *model.Record
	Text   string
	Err    error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Err
}

// BatchProcessor processes multiple documents concurrently
type BatchProcessor struct {
	reader      Reader
	analyzer    Analyzer
	concurrency int
	role        string
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(reader Reader, analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		reader:      reader,
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// SetRole sets the target role every document is matched against
func (b *BatchProcessor) SetRole(role string) {
	b.role = role
}

// ProcessPaths processes documents concurrently and returns one result per
// path, in input order. One failure never aborts the others.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*DocumentResult {
	if len(paths) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		pool.Submit(&DocumentJob{
			Index:    i,
			Path:     path,
			Role:     b.role,
			Reader:   b.reader,
			Analyzer: b.analyzer,
		})
	}

	ordered := make([]*DocumentResult, len(paths))
	for _, result := range pool.Wait() {
		res := result.(*DocumentResult)
		ordered[res.Index] = res
	}

	// Jobs dropped by cancellation still get a result
	for i, res := range ordered {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not processed")
			}
			ordered[i] = &DocumentResult{Index: i, Path: paths[i], Err: err}
		}
	}

	return ordered
}

// ProcessTarget collects documents from a directory or list file and processes them
func (b *BatchProcessor) ProcessTarget(ctx context.Context, target string) ([]*DocumentResult, error) {
	paths, err := CollectDocuments(target)
	if err != nil {
		return nil, err
	}
	return b.ProcessPaths(ctx, paths), nil
}

// CollectDocuments lists supported documents under a directory, or reads a
// list file with one path or URL per line
func CollectDocuments(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", target, err)
	}

	if !info.IsDir() {
		return ReadListFile(target)
	}

	var paths []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != target && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if docreader.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", target, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadListFile reads document paths or URLs from a file (one per line).
// Relative paths resolve against the list file's directory.
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !docreader.IsURL(line) && !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
