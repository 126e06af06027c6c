package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/cvtriage/internal/model"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	return v
}

func TestConfigFrom_Defaults(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")

	cfg, err := configFrom(newTestViper())
	if err != nil {
		t.Fatalf("configFrom failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, model.DefaultConfig()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestConfigFrom_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `llm:
  provider: ollama-cli
  model: llama3
pipeline:
  repair_json: true
http:
  timeout: 45s
concurrency:
  workers: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := configFrom(v)
	if err != nil {
		t.Fatalf("configFrom failed: %v", err)
	}
	if cfg.LLM.Provider != "ollama-cli" || cfg.LLM.Model != "llama3" {
		t.Errorf("unexpected LLM config: %+v", cfg.LLM)
	}
	if !cfg.Pipeline.RepairJSON {
		t.Error("expected repair_json from file")
	}
	if cfg.HTTP.Timeout != 45*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 45s", cfg.HTTP.Timeout)
	}
	if cfg.Concurrency.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Concurrency.Workers)
	}
	// Untouched keys keep their defaults
	if cfg.Pipeline.MaxPromptChars != model.DefaultConfig().Pipeline.MaxPromptChars {
		t.Errorf("MaxPromptChars = %d, want default", cfg.Pipeline.MaxPromptChars)
	}
}

func TestConfigFrom_Env(t *testing.T) {
	t.Setenv("CVTRIAGE_LLM_MODEL", "qwen2.5")
	t.Setenv("CVTRIAGE_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := newTestViper()
	v.SetEnvPrefix("CVTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := configFrom(v)
	if err != nil {
		t.Fatalf("configFrom failed: %v", err)
	}
	if cfg.LLM.Model != "qwen2.5" || cfg.LLM.Provider != "openai" {
		t.Errorf("env overrides not applied: %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want value from OPENAI_API_KEY", cfg.LLM.APIKey)
	}
}

func TestApplyProviderEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "claude"
	applyProviderEnv(cfg)
	if cfg.LLM.APIKey != "sk-ant" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "gemini"
	applyProviderEnv(cfg)
	if cfg.LLM.APIKey != "g-key" {
		t.Errorf("APIKey = %q, want GOOGLE_API_KEY fallback", cfg.LLM.APIKey)
	}

	cfg = model.DefaultConfig()
	applyProviderEnv(cfg)
	if cfg.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("BaseURL = %q", cfg.LLM.BaseURL)
	}

	cfg = model.DefaultConfig()
	cfg.LLM.BaseURL = "http://configured:11434"
	applyProviderEnv(cfg)
	if cfg.LLM.BaseURL != "http://configured:11434" {
		t.Errorf("configured BaseURL was overwritten: %q", cfg.LLM.BaseURL)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	path := filepath.Join(t.TempDir(), ".cvtriage", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	// The written file reads back as the defaults
	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	cfg, err := configFrom(v)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, model.DefaultConfig()) {
		t.Errorf("round trip changed config: %+v", cfg)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false, "json")
	logger.Debug("hidden")
	logger.Warn("pipeline.analyze.stderr", "stderr", "x")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug events must be hidden without verbose")
	}
	if !strings.Contains(out, `"msg":"pipeline.analyze.stderr"`) {
		t.Errorf("expected JSON output, got %q", out)
	}

	buf.Reset()
	newLogger(&buf, true, "text").Debug("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("expected debug event in text format, got %q", buf.String())
	}
}

func TestOutputPaths(t *testing.T) {
	got := outputPaths("out", []string{"/a/ana.pdf", "/b/ana.docx", "/c/luis.pdf"})
	want := []string{
		filepath.Join("out", "001-ana.json"),
		filepath.Join("out", "002-ana.json"),
		filepath.Join("out", "luis.json"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("outputPaths = %v, want %v", got, want)
	}
}
