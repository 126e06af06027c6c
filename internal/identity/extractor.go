// Package identity reads a candidate's name and email straight from the
// document text, independently of any model call.
package identity

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/cvtriage/internal/model"
)

// DefaultPrefixChars is how much of the document is searched for a name
const DefaultPrefixChars = 1000

var (
	// Anchors are tried in order; the first accepted candidate wins.
	labelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnombre:\s*([^\n]{5,40})`),
		regexp.MustCompile(`(?i)\bname:\s*([^\n]{5,40})`),
		regexp.MustCompile(`(?i)curriculum vitae de\s+([^\n]{5,40})`),
		regexp.MustCompile(`(?i)curriculum vitae of\s+([^\n]{5,40})`),
		regexp.MustCompile(`(?i)\bcv de\s+([^\n]{5,40})`),
		regexp.MustCompile(`(?i)\bcv of\s+([^\n]{5,40})`),
		regexp.MustCompile(`(?i)datos personales[^\n]*\n\s*([^\n]{5,40})`),
		regexp.MustCompile(`(?i)personal data[^\n]*\n\s*([^\n]{5,40})`),
		regexp.MustCompile(`(?i)perfil profesional de\s+([^\n]{5,40})`),
		regexp.MustCompile(`(?i)professional profile of\s+([^\n]{5,40})`),
	}

	titleCaseLine = regexp.MustCompile(`^(?:[A-ZÁÉÍÓÚÜÑ][a-záéíóúüñ]+[ \t]+){1,3}[A-ZÁÉÍÓÚÜÑ][a-záéíóúüñ]+$`)

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	boilerplate = map[string]struct{}{
		"tecnología":   {},
		"tecnologia":   {},
		"technology":   {},
		"informática":  {},
		"informatica":  {},
		"informatics":  {},
		"profesional":  {},
		"professional": {},
		"curriculum":   {},
		"vitae":        {},
	}
)

// NameStrategy proposes a name from the document prefix
type NameStrategy struct {
	Name string
	Find func(ctx context.Context, prefix string) (string, bool)
}

// Extractor resolves names through an ordered list of strategies.
// It is safe for concurrent use when its Recognizer is.
type Extractor struct {
	prefixChars int
	recognizer  Recognizer
	strategies  []NameStrategy
	logger      *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithRecognizer enables the named-entity fallback
func WithRecognizer(r Recognizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.recognizer = r
		}
	}
}

// WithPrefixChars changes how many leading characters are searched for a name
func WithPrefixChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.prefixChars = n
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an extractor. Without WithRecognizer the
// named-entity step is a no-op.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		prefixChars: DefaultPrefixChars,
		recognizer:  NopRecognizer{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.strategies = []NameStrategy{
		{Name: "label", Find: func(_ context.Context, prefix string) (string, bool) { return FromLabels(prefix) }},
		{Name: "title_case", Find: func(_ context.Context, prefix string) (string, bool) { return FromTitleCaseLine(prefix) }},
		{Name: "entity", Find: e.fromEntities},
	}
	return e
}

// Extract returns the identity found in text. It never fails; missing
// values fall back to model.UnknownName and an empty email.
func (e *Extractor) Extract(ctx context.Context, text string) model.Identity {
	return model.Identity{
		Name:  e.ExtractName(ctx, text),
		Email: ExtractEmail(text),
	}
}

// ExtractName runs the name strategies over the document prefix
func (e *Extractor) ExtractName(ctx context.Context, text string) string {
	prefix := truncateRunes(text, e.prefixChars)
	for _, s := range e.strategies {
		if name, ok := s.Find(ctx, prefix); ok {
			e.logger.Debug("identity.name.found", "strategy", s.Name, "name", name)
			return name
		}
	}
	return model.UnknownName
}

// FromLabels looks for "Nombre:", "CV of" and similar anchors
func FromLabels(prefix string) (string, bool) {
	for _, re := range labelPatterns {
		m := re.FindStringSubmatch(prefix)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(strings.Fields(name)) >= 2 && !hasBoilerplate(name) {
			return name, true
		}
	}
	return "", false
}

// FromTitleCaseLine returns the first line made of 2-4 capitalized words
func FromTitleCaseLine(prefix string) (string, bool) {
	for _, line := range strings.Split(prefix, "\n") {
		line = strings.TrimSpace(line)
		if titleCaseLine.MatchString(line) && !hasBoilerplate(line) {
			return line, true
		}
	}
	return "", false
}

// fromEntities picks the longest plausible person entity. Recognizer
// failures, including panics, mean "no candidate".
func (e *Extractor) fromEntities(ctx context.Context, prefix string) (name string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("identity.recognizer.panic", "recovered", r)
			name, ok = "", false
		}
	}()

	entities, err := e.recognizer.PersonEntities(ctx, prefix)
	if err != nil {
		e.logger.Debug("identity.recognizer.error", "error", err)
		return "", false
	}
	return LongestPersonName(entities)
}

// LongestPersonName filters entities to 2-4 tokens, more than 8 characters
// and no boilerplate, and returns the longest. Ties keep the first.
func LongestPersonName(entities []string) (string, bool) {
	best, bestLen := "", 0
	for _, ent := range entities {
		ent = strings.TrimSpace(ent)
		words := len(strings.Fields(ent))
		n := utf8.RuneCountInString(ent)
		if words < 2 || words > 4 || n <= 8 || hasBoilerplate(ent) {
			continue
		}
		if n > bestLen {
			best, bestLen = ent, n
		}
	}
	return best, best != ""
}

// ExtractEmail returns the first email-shaped token in text, or ""
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

func hasBoilerplate(s string) bool {
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:()[]\"'")
		if _, ok := boilerplate[tok]; ok {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
