package runner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun_CapturesStdout(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("unexpected stdout: %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("unexpected exit code: %d", res.ExitCode)
	}
}

func TestRun_NonZeroExitIsError(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for exit code 3")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr line in error, got: %v", err)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "failed to start") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRun_ContextCancelKillsProcess(t *testing.T) {
	r := New()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "sh", "-c", "sleep 10")
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("process was not killed promptly, took %s", elapsed)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("a\nb\n\n"); got != "b" {
		t.Errorf("expected last non-empty line, got %q", got)
	}
	if got := lastLine(""); got != "no error output" {
		t.Errorf("expected placeholder, got %q", got)
	}
}
