package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stagehand/stagehand/internal/runner"
)

// fakeRunner records invocations and plays back scripted stdout.
type fakeRunner struct {
	calls  [][]string
	stdout string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return runner.Result{Stdout: f.stdout}, f.err
}

func TestCreate_InvokesVenvModule(t *testing.T) {
	fr := &fakeRunner{}
	e := New("/tmp/bench-venv", "python3", "requirements.txt", fr)

	if err := e.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	want := []string{"python3", "-m", "venv", "/tmp/bench-venv"}
	if !reflect.DeepEqual(fr.calls[0], want) {
		t.Errorf("unexpected command: %v", fr.calls[0])
	}
}

func TestInstall_UsesVenvInterpreter(t *testing.T) {
	fr := &fakeRunner{}
	e := New("venvdir", "", "reqs.txt", fr)

	if err := e.Install(context.Background()); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	got := fr.calls[0]
	if !strings.Contains(got[0], "venvdir") {
		t.Errorf("expected venv interpreter, got %q", got[0])
	}
	if got[len(got)-1] != "reqs.txt" {
		t.Errorf("expected requirements path last, got %v", got)
	}
}

func TestFreeze_SplitsLines(t *testing.T) {
	fr := &fakeRunner{stdout: "boto3==1.26.0\n\npsutil==5.9.0\n"}
	e := New("v", "", "", fr)

	lines, err := e.Freeze(context.Background())
	if err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, "", "", nil)
	if e.Exists() {
		t.Error("empty dir must not count as an environment")
	}
	if err := os.MkdirAll(filepath.Dir(e.PythonPath()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.PythonPath(), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if !e.Exists() {
		t.Error("expected environment to be detected")
	}
}

func TestParseRequirements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	content := `# test suite dependencies
boto3==1.26.42
psutil>=5.9
pydantic~=1.10
requests[socks]==2.28.1
typing-extensions; python_version < "3.10"
-r extra.txt

flake8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	names, err := ParseRequirements(path)
	if err != nil {
		t.Fatalf("ParseRequirements failed: %v", err)
	}
	want := []string{"boto3", "psutil", "pydantic", "requests", "typing-extensions", "flake8"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestMissing_NormalizesNames(t *testing.T) {
	frozen := []string{"Boto3==1.26.42", "typing_extensions==4.4.0"}
	manifest := []string{"boto3", "typing-extensions", "psutil"}

	missing := Missing(frozen, manifest)
	if !reflect.DeepEqual(missing, []string{"psutil"}) {
		t.Errorf("got %v, want [psutil]", missing)
	}
}

func TestMissing_EmptyManifest(t *testing.T) {
	if got := Missing([]string{"a==1"}, nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
