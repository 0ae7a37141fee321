package cli

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"run", "processes", "runs", "show", "events",
		"analytics", "config", "db", "version",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestProcessesCommand(t *testing.T) {
	out, err := executeCommand("processes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"e2e-suite", "flakiness", "mutation", "perf-test", "cross-browser", "env-provision", "shift-left"} {
		if !strings.Contains(out, name) {
			t.Errorf("processes output missing %q", name)
		}
	}
}

func TestAnalyticsSubcommands(t *testing.T) {
	subcmds := []string{"run-duration", "outcomes", "gates", "work-units"}
	for _, sub := range subcmds {
		out, err := executeCommand("analytics", sub, "--help")
		if err != nil {
			t.Errorf("analytics %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("analytics %s --help produced no output", sub)
		}
	}
}

func TestRunRejectsUnknownProcess(t *testing.T) {
	_, err := executeCommand("run", "nonexistent-process")
	if err == nil {
		t.Fatal("expected error for unknown process")
	}
	if !strings.Contains(err.Error(), "unknown process") {
		t.Errorf("error = %v, want unknown process", err)
	}
}

func TestRunRejectsBadParam(t *testing.T) {
	_, err := executeCommand("run", "e2e-suite", "--param", "noequals")
	if err == nil {
		t.Fatal("expected error for malformed --param")
	}
	if !strings.Contains(err.Error(), "key=value") {
		t.Errorf("error = %v, want key=value hint", err)
	}
}

func TestCoerceParam(t *testing.T) {
	if v := coerceParam("95"); v != 95.0 {
		t.Errorf("coerceParam(95) = %v (%T), want 95.0", v, v)
	}
	if v := coerceParam("true"); v != true {
		t.Errorf("coerceParam(true) = %v, want true", v)
	}
	if v := coerceParam("cypress"); v != "cypress" {
		t.Errorf("coerceParam(cypress) = %v, want cypress", v)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommand("nonexistent")
	if err == nil {
		t.Error("expected error for unknown command, got nil")
	}
}
