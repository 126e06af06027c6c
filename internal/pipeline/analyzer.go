// Package pipeline turns document text into an analysis record: it prompts
// the model, recovers a JSON object from whatever comes back, validates and
// normalizes it, and merges the identity read from the document itself.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/cvtriage/internal/identity"
	"github.com/ppiankov/cvtriage/internal/llm"
	"github.com/ppiankov/cvtriage/internal/model"
	"github.com/ppiankov/cvtriage/internal/recovery"
)

const (
	DefaultMaxPromptChars = 4000
	DefaultMaxRawChars    = 500
)

// Analyzer runs one document through the model. It is safe for concurrent use.
type Analyzer struct {
	provider       llm.Provider
	extractor      *identity.Extractor
	recoverer      *recovery.Recoverer
	schema         *jsonschema.Schema
	maxPromptChars int
	maxRawChars    int
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithMaxPromptChars sets the document budget for the prompt
func WithMaxPromptChars(n int) Option {
	return func(a *Analyzer) { a.maxPromptChars = n }
}

// WithMaxRawChars sets how much of a failed reply is kept
func WithMaxRawChars(n int) Option {
	return func(a *Analyzer) { a.maxRawChars = n }
}

// WithRecoverer replaces the default recovery strategies
func WithRecoverer(r *recovery.Recoverer) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.recoverer = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer. A nil extractor uses heuristics only.
func NewAnalyzer(provider llm.Provider, extractor *identity.Extractor, opts ...Option) (*Analyzer, error) {
	if provider == nil {
		return nil, fmt.Errorf("analyzer requires an LLM provider")
	}
	if extractor == nil {
		extractor = identity.NewExtractor()
	}

	schema, err := compileRecordSchema()
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		provider:       provider,
		extractor:      extractor,
		recoverer:      recovery.NewRecoverer(),
		schema:         schema,
		maxPromptChars: DefaultMaxPromptChars,
		maxRawChars:    DefaultMaxRawChars,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze always returns a record. Failures of any step, including panics,
// become a failed record that still carries the document's identity.
func (a *Analyzer) Analyze(ctx context.Context, text, role string) (rec *model.Record) {
	id := uuid.NewString()
	logger := a.logger.With("analysis_id", id, "provider", a.provider.Name())
	start := a.now()

	text = strings.ToValidUTF8(text, "�")
	ident := model.Identity{Name: model.UnknownName}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline.analyze.panic", "panic", r)
			rec = a.failed(fmt.Errorf("internal error: %v", r), "", ident)
		}
		rec.ID = id
		rec.Role = role
		rec.AnalyzedAt = start.UTC()
	}()

	if strings.TrimSpace(text) == "" {
		logger.Warn("pipeline.analyze.empty_input")
		return a.failed(ErrEmptyInput, "", ident)
	}

	prompt := BuildPrompt(TruncateText(text, a.maxPromptChars), role)
	logger.Debug("pipeline.analyze.start", "text_chars", len(text), "prompt_chars", len(prompt), "role", role)

	var (
		reply    *llm.Reply
		inferErr error
		g        errgroup.Group
	)

	// Identity needs only the document, so it overlaps the model call
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("pipeline.identity.panic", "panic", r)
			}
		}()
		ident = a.extractor.Extract(ctx, text)
		return nil
	})

	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				inferErr = fmt.Errorf("provider panic: %v", r)
			}
		}()
		reply, inferErr = a.provider.Generate(ctx, prompt)
		return nil
	})

	_ = g.Wait()

	if inferErr == nil && reply == nil {
		inferErr = fmt.Errorf("provider returned no reply")
	}
	if inferErr != nil {
		logger.Warn("pipeline.analyze.inference_failed", "error", inferErr)
		return a.failed(fmt.Errorf("%w: %v", ErrInference, inferErr), "", ident)
	}

	if stderr := strings.TrimSpace(reply.Stderr); stderr != "" {
		logger.Warn("pipeline.analyze.stderr", "stderr", truncateRaw(stderr, 200))
	}

	out := strings.TrimSpace(reply.Stdout)
	found, ok := a.recoverer.Recover(out)
	if !ok {
		logger.Warn("pipeline.analyze.no_candidate", "stdout_chars", len(out))
		return a.failed(ErrNoCandidate, out, ident)
	}

	rec, err := decodeRecord(a.schema, found.Object)
	if err != nil {
		logger.Warn("pipeline.analyze.malformed", "strategy", found.Strategy, "error", err)
		return a.failed(err, out, ident)
	}

	rec.Nombre = ident.Name
	rec.Email = ident.Email

	logger.Info("pipeline.analyze.done",
		"strategy", found.Strategy,
		"match", rec.Match,
		"seniority", rec.Seniority,
		"extra_keys", extraKeys(rec),
		"tokens", reply.TokensUsed,
		"duration_ms", a.now().Sub(start).Milliseconds(),
	)
	return rec
}

func (a *Analyzer) failed(err error, raw string, ident model.Identity) *model.Record {
	return &model.Record{
		Error:  err.Error(),
		Raw:    truncateRaw(raw, a.maxRawChars),
		Nombre: ident.Name,
		Email:  ident.Email,
	}
}
