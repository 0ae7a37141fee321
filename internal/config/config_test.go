package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfig = `
store:
  backend: fs
  base_dir: /var/lib/qaforge/runs
db:
  path: /var/lib/qaforge/qaforge.db
agent:
  command: qa-agent
  args: ["--json"]
  timeout: "5m"
review:
  mode: console
  timeout: "30m"
processes:
  e2e-suite:
    framework: cypress
    target_pass_rate: 90
  perf-test:
    latency_budget_ms: 350
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "qaforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Store.Backend != "fs" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "fs")
	}
	if cfg.Store.BaseDir != "/var/lib/qaforge/runs" {
		t.Errorf("Store.BaseDir = %q", cfg.Store.BaseDir)
	}
	if cfg.Agent.Command != "qa-agent" {
		t.Errorf("Agent.Command = %q, want %q", cfg.Agent.Command, "qa-agent")
	}
	if len(cfg.Agent.Args) != 1 || cfg.Agent.Args[0] != "--json" {
		t.Errorf("Agent.Args = %v", cfg.Agent.Args)
	}
	if got := cfg.Agent.AgentTimeout(); got != 5*time.Minute {
		t.Errorf("AgentTimeout() = %v, want 5m", got)
	}
	if got := cfg.Review.ReviewTimeout(); got != 30*time.Minute {
		t.Errorf("ReviewTimeout() = %v, want 30m", got)
	}

	params := cfg.ProcessParams("e2e-suite")
	if params == nil {
		t.Fatal("ProcessParams(e2e-suite) = nil")
	}
	if params["framework"] != "cypress" {
		t.Errorf("framework = %v, want cypress", params["framework"])
	}
	if cfg.ProcessParams("mutation") != nil {
		t.Error("ProcessParams(mutation) should be nil when unconfigured")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, "agent:\n  command: qa-agent\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Store.Backend != "fs" {
		t.Errorf("default Store.Backend = %q, want fs", cfg.Store.Backend)
	}
	if cfg.Review.Mode != "console" {
		t.Errorf("default Review.Mode = %q, want console", cfg.Review.Mode)
	}
	if cfg.Agent.Timeout != "10m" {
		t.Errorf("default Agent.Timeout = %q, want 10m", cfg.Agent.Timeout)
	}
	if got := cfg.Review.ReviewTimeout(); got != 0 {
		t.Errorf("ReviewTimeout() with no timeout = %v, want 0", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/qaforge.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeTestConfig(t, "store: [not: a: mapping")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parsing config YAML") {
		t.Errorf("error = %v, want parse error", err)
	}
}

func TestValidateValid(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Store:  StoreConfig{Backend: "s3"},
		Agent:  AgentConfig{Timeout: "whenever"},
		Review: ReviewConfig{Mode: "slack", Timeout: "soon"},
	}
	errs := Validate(cfg)

	wantFields := []string{"store.backend", "agent.command", "agent.timeout", "review.mode", "review.timeout"}
	if len(errs) != len(wantFields) {
		t.Fatalf("Validate() returned %d errors, want %d: %v", len(errs), len(wantFields), errs)
	}
	for i, want := range wantFields {
		if errs[i].Field != want {
			t.Errorf("errs[%d].Field = %q, want %q", i, errs[i].Field, want)
		}
	}
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	cfg := &Config{
		Store:  StoreConfig{Backend: "postgres"},
		Agent:  AgentConfig{Command: "qa-agent"},
		Review: ReviewConfig{Mode: "auto"},
	}
	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("Validate() = %v, want exactly the DSN error", errs)
	}
	if errs[0].Field != "store.postgres_dsn" {
		t.Errorf("Field = %q, want store.postgres_dsn", errs[0].Field)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "agent.command", Message: "is required"}
	if e.Error() != "agent.command: is required" {
		t.Errorf("Error() = %q", e.Error())
	}
}
