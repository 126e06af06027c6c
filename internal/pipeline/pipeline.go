package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ppiankov/cvtriage/internal/cache"
	"github.com/ppiankov/cvtriage/internal/docreader"
	"github.com/ppiankov/cvtriage/internal/identity"
	"github.com/ppiankov/cvtriage/internal/llm"
	"github.com/ppiankov/cvtriage/internal/model"
	"github.com/ppiankov/cvtriage/internal/recovery"
	"github.com/ppiankov/cvtriage/internal/worker"
)

// Pipeline wires the document reader, the analyzer and the renderer from
// configuration
type Pipeline struct {
	reader   *docreader.Reader
	analyzer *Analyzer
	renderer *Renderer
	config   *model.Config
	logger   *slog.Logger
}

// NewPipeline creates a pipeline around provider, which should already be
// wrapped by BuildProvider
func NewPipeline(cfg *model.Config, provider llm.Provider, limiter *worker.Limiter, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fetcher := docreader.NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.RespectRobots,
		cfg.LLM.HTTPProxy,
		cfg.LLM.HTTPSProxy,
		cfg.LLM.NoProxy,
	)
	if limiter != nil {
		fetcher.SetLimiter(limiter)
	}

	recognizer, err := newRecognizer(cfg.Identity.Recognizer, provider)
	if err != nil {
		return nil, err
	}
	extractor := identity.NewExtractor(
		identity.WithRecognizer(recognizer),
		identity.WithPrefixChars(cfg.Identity.PrefixChars),
		identity.WithLogger(logger),
	)

	recoverer := recovery.NewRecoverer()
	if cfg.Pipeline.RepairJSON {
		recoverer = recoverer.WithRepair()
	}

	analyzer, err := NewAnalyzer(provider, extractor,
		WithMaxPromptChars(cfg.Pipeline.MaxPromptChars),
		WithMaxRawChars(cfg.Pipeline.MaxRawChars),
		WithRecoverer(recoverer),
		WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		reader:   docreader.NewReader(fetcher),
		analyzer: analyzer,
		renderer: NewRenderer(),
		config:   cfg,
		logger:   logger,
	}, nil
}

// BuildProvider creates the configured provider and layers the reply cache
// and the rate limiter on top
func BuildProvider(cfg *model.Config, limiter *worker.Limiter) (llm.Provider, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	if limiter != nil {
		provider = llm.NewRateLimitedProvider(provider, limiter)
	}

	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.DiskDir, cfg.Cache.DiskTTL)
		provider = llm.NewCachedProvider(provider, c, cfg.LLM.Model)
	}

	return provider, nil
}

func newRecognizer(name string, provider llm.Provider) (identity.Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return identity.NopRecognizer{}, nil
	case "llm":
		return llm.NewEntityRecognizer(provider), nil
	default:
		return nil, fmt.Errorf("unknown identity recognizer: %s (supported: none, llm)", name)
	}
}

// Reader returns the document reader
func (p *Pipeline) Reader() *docreader.Reader {
	return p.reader
}

// Analyzer returns the analyzer
func (p *Pipeline) Analyzer() *Analyzer {
	return p.analyzer
}

// AnalyzeResult is a record together with the text it was computed from
type AnalyzeResult struct {
	Record *model.Record
	Text   string
}

// AnalyzeSource reads a document path or URL and analyzes it
func (p *Pipeline) AnalyzeSource(ctx context.Context, source, role string) (*AnalyzeResult, error) {
	text, err := p.reader.Read(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("read document: %s: %w", source, worker.ErrEmptyDocument)
	}

	rec := p.analyzer.Analyze(ctx, text, role)
	rec.Source = source

	return &AnalyzeResult{Record: rec, Text: text}, nil
}

// RenderRecord writes rec to jsonPath (when set) and prints its summary to w
func (p *Pipeline) RenderRecord(rec *model.Record, jsonPath string, w io.Writer, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(rec, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	p.renderer.RenderSummary(w, rec)
	return nil
}
