package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/cvtriage/internal/identity"
	"github.com/ppiankov/cvtriage/internal/llm"
	"github.com/ppiankov/cvtriage/internal/model"
	"github.com/ppiankov/cvtriage/internal/recovery"
)

// mockProvider returns a fixed reply and records prompts
type mockProvider struct {
	mu      sync.Mutex
	stdout  string
	stderr  string
	err     error
	panics  bool
	prompts []string
}

func (m *mockProvider) Name() string                         { return "mock" }
func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *mockProvider) Generate(ctx context.Context, prompt string) (*llm.Reply, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.panics {
		panic("backend exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Reply{Stdout: m.stdout, Stderr: m.stderr}, nil
}

func (m *mockProvider) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

const sampleCV = "Nombre: Ana María López\nana.lopez@example.com\nBackend developer, 8 years of Go.\n"

func newTestAnalyzer(t *testing.T, p llm.Provider, opts ...Option) *Analyzer {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	a, err := NewAnalyzer(p, identity.NewExtractor(), opts...)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return a
}

func TestAnalyze_FencedReplyWithProse(t *testing.T) {
	p := &mockProvider{stdout: "Here is the result:\n```json\n{\"perfil\":\"x\",\"match\":\"95%\"}\n```\nThanks!"}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if rec.Failed() {
		t.Fatalf("expected success, got error %q", rec.Error)
	}
	if rec.Match != 95 {
		t.Errorf("Match = %v, want 95", rec.Match)
	}
	if rec.Perfil != "x" {
		t.Errorf("Perfil = %q, want x", rec.Perfil)
	}
	if rec.Nombre != "Ana María López" || rec.Email != "ana.lopez@example.com" {
		t.Errorf("identity not merged: %q %q", rec.Nombre, rec.Email)
	}
	if rec.ID == "" || rec.AnalyzedAt.IsZero() {
		t.Error("expected ID and timestamp to be set")
	}
}

func TestAnalyze_EmptyReplyFails(t *testing.T) {
	p := &mockProvider{stdout: ""}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if !rec.Failed() {
		t.Fatal("expected failed record")
	}
	if !strings.Contains(rec.Error, ErrNoCandidate.Error()) {
		t.Errorf("unexpected error: %q", rec.Error)
	}
	if rec.Raw != "" {
		t.Errorf("Raw = %q, want empty", rec.Raw)
	}
	if rec.Nombre != "Ana María López" || rec.Email != "ana.lopez@example.com" {
		t.Errorf("identity missing on failure: %q %q", rec.Nombre, rec.Email)
	}
}

func TestAnalyze_InferenceError(t *testing.T) {
	p := &mockProvider{err: errors.New("connection refused")}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if !rec.Failed() || !strings.Contains(rec.Error, ErrInference.Error()) {
		t.Fatalf("expected inference failure, got %+v", rec)
	}
	if !strings.Contains(rec.Error, "connection refused") {
		t.Errorf("expected cause in error, got %q", rec.Error)
	}
	if rec.Raw != "" {
		t.Errorf("Raw = %q, want empty", rec.Raw)
	}
	if rec.Nombre != "Ana María López" {
		t.Errorf("identity missing: %q", rec.Nombre)
	}
}

func TestAnalyze_ProviderPanicBecomesFailedRecord(t *testing.T) {
	p := &mockProvider{panics: true}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if !rec.Failed() {
		t.Fatal("expected failed record")
	}
	if rec.Email != "ana.lopez@example.com" {
		t.Errorf("identity missing: %q", rec.Email)
	}
}

func TestAnalyze_RecognizerPanicKeepsSentinel(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x"}`}
	ext := identity.NewExtractor(identity.WithRecognizer(identity.RecognizerFunc(
		func(ctx context.Context, text string) ([]string, error) { panic("model missing") },
	)))
	a, _ := NewAnalyzer(p, ext, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	rec := a.Analyze(context.Background(), "no name here\n", "")

	if rec.Failed() {
		t.Fatalf("expected success, got %q", rec.Error)
	}
	if rec.Nombre != model.UnknownName {
		t.Errorf("Nombre = %q, want sentinel", rec.Nombre)
	}
}

func TestAnalyze_StderrIsAdvisory(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x","match":80}`, stderr: "pulling manifest... error: something scary"}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if rec.Failed() {
		t.Fatalf("stderr must not fail the record: %q", rec.Error)
	}
	if rec.Match != 80 {
		t.Errorf("Match = %v, want 80", rec.Match)
	}
}

func TestAnalyze_MalformedValue(t *testing.T) {
	stdout := `{"perfil":"x","skills":42}`
	p := &mockProvider{stdout: stdout}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if !rec.Failed() {
		t.Fatal("expected failed record for number-valued skills")
	}
	if !strings.Contains(rec.Error, ErrMalformedValue.Error()) {
		t.Errorf("unexpected error: %q", rec.Error)
	}
	if rec.Raw != stdout {
		t.Errorf("Raw = %q, want full reply", rec.Raw)
	}
}

func TestAnalyze_UnparseableMatchIsZero(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x","match":"not applicable"}`}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if rec.Failed() {
		t.Fatalf("expected success, got %q", rec.Error)
	}
	if rec.Match != 0 {
		t.Errorf("Match = %v, want 0", rec.Match)
	}
}

func TestAnalyze_RawTruncated(t *testing.T) {
	stdout := strings.Repeat("ñ", 600)
	p := &mockProvider{stdout: stdout}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if !rec.Failed() {
		t.Fatal("expected failed record")
	}
	if rec.Raw != strings.Repeat("ñ", 500)+"..." {
		t.Errorf("Raw has %d runes, want 500 plus ellipsis", len([]rune(rec.Raw)))
	}

	short := &mockProvider{stdout: "no json at all"}
	rec = newTestAnalyzer(t, short).Analyze(context.Background(), sampleCV, "")
	if rec.Raw != "no json at all" {
		t.Errorf("short Raw = %q, want unchanged", rec.Raw)
	}
}

func TestAnalyze_EmptyInputSkipsInference(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x"}`}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), " \n\t", "")

	if !rec.Failed() || !strings.Contains(rec.Error, ErrEmptyInput.Error()) {
		t.Fatalf("expected empty input failure, got %+v", rec)
	}
	if rec.Nombre != model.UnknownName || rec.Email != "" {
		t.Errorf("expected sentinel identity, got %q %q", rec.Nombre, rec.Email)
	}
	if len(p.prompts) != 0 {
		t.Error("provider must not be called for empty input")
	}
}

func TestAnalyze_TruncatesPromptButNotIdentity(t *testing.T) {
	long := "Nombre: Luis Gómez Pardo\n" + strings.Repeat("experiencia ", 500) + "\ncontacto: luis@example.org\n"
	p := &mockProvider{stdout: `{"perfil":"x"}`}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), long, "")

	prompt := p.lastPrompt()
	if !strings.Contains(prompt, TruncationMarker) {
		t.Error("expected truncation marker in prompt")
	}
	if strings.Contains(prompt, "luis@example.org") {
		t.Error("prompt should not contain text past the budget")
	}
	if rec.Email != "luis@example.org" {
		t.Errorf("identity must use the full text, got email %q", rec.Email)
	}
}

func TestAnalyze_RoleInPrompt(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x","match":"70"}`}
	a := newTestAnalyzer(t, p)

	rec := a.Analyze(context.Background(), sampleCV, "Site Reliability Engineer")
	if !strings.Contains(p.lastPrompt(), `"Site Reliability Engineer"`) {
		t.Error("expected role in prompt")
	}
	if rec.Role != "Site Reliability Engineer" {
		t.Errorf("Role = %q", rec.Role)
	}

	a.Analyze(context.Background(), sampleCV, "")
	if !strings.Contains(p.lastPrompt(), "no specific target role") || !strings.Contains(p.lastPrompt(), `"match": "100"`) {
		t.Error("expected no-role prompt to ask for match 100")
	}
}

func TestAnalyze_FieldCoercion(t *testing.T) {
	p := &mockProvider{stdout: `{
		"perfil": "Backend engineer",
		"skills": "Go, Kubernetes , ,PostgreSQL",
		"experiencia": ["Acme 2019-2023", "Initech 2015-2019"],
		"seniority": "semi senior",
		"area_profesional": null,
		"match": 88.5,
		"idiomas": ["es", "en"]
	}`}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), sampleCV, "")

	if rec.Failed() {
		t.Fatalf("expected success, got %q", rec.Error)
	}
	if strings.Join(rec.Skills, "|") != "Go|Kubernetes|PostgreSQL" {
		t.Errorf("Skills = %v", rec.Skills)
	}
	if rec.Experiencia != "Acme 2019-2023, Initech 2015-2019" {
		t.Errorf("Experiencia = %q", rec.Experiencia)
	}
	if rec.Seniority != model.SenioritySemiSenior {
		t.Errorf("Seniority = %q", rec.Seniority)
	}
	if rec.AreaProfesional != "" {
		t.Errorf("AreaProfesional = %q, want empty", rec.AreaProfesional)
	}
	if rec.Match != 88.5 {
		t.Errorf("Match = %v", rec.Match)
	}
	if _, ok := rec.Extra["idiomas"]; !ok {
		t.Error("expected unknown key to pass through")
	}
}

func TestAnalyze_JSONKeySets(t *testing.T) {
	keysOf := func(rec *model.Record) string {
		b, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var m map[string]any
		_ = json.Unmarshal(b, &m)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, ",")
	}

	ok := newTestAnalyzer(t, &mockProvider{stdout: `{"perfil":"x"}`}).Analyze(context.Background(), sampleCV, "")
	if got := keysOf(ok); got != "area_profesional,email,experiencia,match,nombre,perfil,seniority,skills" {
		t.Errorf("success keys = %s", got)
	}

	bad := newTestAnalyzer(t, &mockProvider{stdout: "nope"}).Analyze(context.Background(), sampleCV, "")
	if got := keysOf(bad); got != "email,error,nombre,raw" {
		t.Errorf("failure keys = %s", got)
	}
}

	stray := newTestAnalyzer(t, &mockProvider{stdout: `{"perfil":"x","error":"none","raw":"zzz"}`}).Analyze(context.Background(), sampleCV, "")
	if stray.Failed() {
		t.Fatalf("expected success, got %q", stray.Error)
	}
	if got := keysOf(stray); got != "area_profesional,email,experiencia,match,nombre,perfil,seniority,skills" {
		t.Errorf("success keys with stray error/raw = %s", got)
	}
}

func TestAnalyze_LenientSkillsAndMatch(t *testing.T) {
	stdout := `{"perfil":"Backend developer","skills":[{"name":"Go"},{"name":"SQL"}],` +
		`"experiencia":"5 years","area_profesional":"IT","match":true}`
	rec := newTestAnalyzer(t, &mockProvider{stdout: stdout}).Analyze(context.Background(), sampleCV, "")

	if rec.Failed() {
		t.Fatalf("expected success, got %q", rec.Error)
	}
	if got := strings.Join(rec.Skills, ","); got != "Go,SQL" {
		t.Errorf("Skills = %s", got)
	}
	if rec.Perfil != "Backend developer" || rec.Experiencia != "5 years" || rec.AreaProfesional != "IT" {
		t.Errorf("prose fields lost: %+v", rec)
	}
	if rec.Match != 0 {
		t.Errorf("Match = %v, want 0", rec.Match)
	}
}

func TestAnalyze_RepairRecoversTruncatedReply(t *testing.T) {
	stdout := `{"perfil": "Backend engineer", "skills": ["Go", "SQL"], "match": "75`

	plain := newTestAnalyzer(t, &mockProvider{stdout: stdout}).Analyze(context.Background(), sampleCV, "")
	if !plain.Failed() {
		t.Fatal("expected failure without repair")
	}

	withRepair := newTestAnalyzer(t, &mockProvider{stdout: stdout},
		WithRecoverer(recovery.NewRecoverer().WithRepair()),
	).Analyze(context.Background(), sampleCV, "")
	if withRepair.Failed() {
		t.Fatalf("expected repair to recover, got %q", withRepair.Error)
	}
	if withRepair.Perfil != "Backend engineer" || withRepair.Match != 75 {
		t.Errorf("unexpected repaired record: %+v", withRepair)
	}
}

func TestAnalyze_InvalidUTF8Input(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x"}`}
	rec := newTestAnalyzer(t, p).Analyze(context.Background(), "Nombre: Ana \xff López Ruiz\n", "")

	if rec.Failed() {
		t.Fatalf("expected success, got %q", rec.Error)
	}
	if !strings.Contains(p.lastPrompt(), "�") {
		t.Error("expected invalid bytes replaced in prompt")
	}
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	p := &mockProvider{stdout: `{"perfil":"x","match":"50"}`}
	a := newTestAnalyzer(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := a.Analyze(context.Background(), sampleCV, ""); rec.Match != 50 {
				t.Errorf("Match = %v", rec.Match)
			}
		}()
	}
	wg.Wait()
}

func TestNewAnalyzer_RequiresProvider(t *testing.T) {
	if _, err := NewAnalyzer(nil, nil); err == nil {
		t.Error("expected error without provider")
	}
}
