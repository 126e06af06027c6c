package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ExecProvider runs a local model binary (by default `ollama run <model>`),
// writes the prompt to its stdin and captures stdout and stderr.
type ExecProvider struct {
	command string
	args    []string
	config  Config
}

// NewExecProvider creates a provider backed by a local command
func NewExecProvider(config Config) (*ExecProvider, error) {
	command := config.Command
	if command == "" {
		command = "ollama"
	}

	args := config.Args
	if len(args) == 0 {
		if config.Model == "" {
			return nil, fmt.Errorf("ollama-cli model must be specified (e.g., deepseek-r1)")
		}
		args = []string{"run", config.Model}
	}

	return &ExecProvider{
		command: command,
		args:    args,
		config:  config,
	}, nil
}

// Name returns the provider name
func (p *ExecProvider) Name() string {
	return "ollama-cli"
}

// IsAvailable checks that the command is on PATH
func (p *ExecProvider) IsAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath(p.command); err != nil {
		slog.Warn("llm.exec.unavailable", "command", p.command, "error", err)
		return false
	}
	return true
}

// Generate runs the command once per prompt. A non-zero exit is reported
// through Stderr only; the caller decides from stdout whether the call worked.
func (p *ExecProvider) Generate(ctx context.Context, prompt string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout(300*time.Second))
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	reply := &Reply{
		// Undecodable bytes become U+FFFD
		Stdout: strings.ToValidUTF8(stdout.String(), "�"),
		Stderr: strings.ToValidUTF8(stderr.String(), "�"),
		Model:  p.config.Model,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			return nil, fmt.Errorf("run %s: %w", p.command, errors.Join(err, ctx.Err()))
		}
		if reply.Stderr != "" && !strings.HasSuffix(reply.Stderr, "\n") {
			reply.Stderr += "\n"
		}
		reply.Stderr += exitErr.String()
	}

	slog.Debug("llm.exec.done",
		"command", p.command,
		"duration_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)

	return reply, nil
}
