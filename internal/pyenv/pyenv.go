// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pyenv provisions the Python virtual environment the test suite
// runs from: create the venv, upgrade the package manager, install the
// dependency manifest, and compare installed packages against it.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/stagehand/stagehand/internal/runner"
)

// Env describes one virtual environment.
type Env struct {
	// Dir is the venv directory.
	Dir string
	// Python is the interpreter used to create the venv (python3 by default).
	Python string
	// Requirements is the path to the dependency manifest.
	Requirements string

	run runner.Runner
}

// New returns an Env backed by the given runner.
func New(dir, python, requirements string, r runner.Runner) *Env {
	if python == "" {
		python = "python3"
	}
	return &Env{Dir: dir, Python: python, Requirements: requirements, run: r}
}

// PythonPath returns the interpreter inside the venv.
func (e *Env) PythonPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.Dir, "Scripts", "python.exe")
	}
	return filepath.Join(e.Dir, "bin", "python")
}

// Exists reports whether the venv interpreter is present.
func (e *Env) Exists() bool {
	_, err := os.Stat(e.PythonPath())
	return err == nil
}

// Create builds the virtual environment with `python -m venv`.
func (e *Env) Create(ctx context.Context) error {
	if _, err := e.run.Run(ctx, e.Python, "-m", "venv", e.Dir); err != nil {
		return fmt.Errorf("venv creation failed: %w", err)
	}
	return nil
}

// UpgradePip upgrades the package manager inside the venv.
func (e *Env) UpgradePip(ctx context.Context) error {
	if _, err := e.run.Run(ctx, e.PythonPath(), "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		return fmt.Errorf("pip upgrade failed: %w", err)
	}
	return nil
}

// Install installs the dependency manifest into the venv.
func (e *Env) Install(ctx context.Context) error {
	if _, err := e.run.Run(ctx, e.PythonPath(), "-m", "pip", "install", "-r", e.Requirements); err != nil {
		return fmt.Errorf("dependency install failed: %w", err)
	}
	return nil
}

// Freeze returns the installed distributions, one `name==version` per line.
func (e *Env) Freeze(ctx context.Context) ([]string, error) {
	res, err := e.run.Run(ctx, e.PythonPath(), "-m", "pip", "freeze")
	if err != nil {
		return nil, fmt.Errorf("pip freeze failed: %w", err)
	}
	var lines []string
	for _, l := range strings.Split(res.Stdout, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// ParseRequirements extracts the package names from a requirements file.
// Comments, blank lines, pip options (-r, --index-url...) are skipped;
// version pins, extras and environment markers are stripped.
func ParseRequirements(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements file %s: %w", path, err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name := requirementName(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Missing returns the manifest packages absent from a freeze listing.
// Names compare per pip normalization: case-insensitive, `-` and `_` fold.
func Missing(frozen, manifest []string) []string {
	installed := make(map[string]bool, len(frozen))
	for _, line := range frozen {
		if name := requirementName(line); name != "" {
			installed[NormalizeName(name)] = true
		}
	}

	var missing []string
	for _, want := range manifest {
		if !installed[NormalizeName(want)] {
			missing = append(missing, want)
		}
	}
	return missing
}

// NormalizeName folds a distribution name the way pip compares them.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

// requirementName cuts a requirement line down to the bare package name.
func requirementName(line string) string {
	// Environment marker first, then extras, then any version operator.
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, '['); i >= 0 {
		line = line[:i]
	}
	for _, op := range []string{"===", "==", ">=", "<=", "~=", "!=", ">", "<", "@"} {
		if i := strings.Index(line, op); i >= 0 {
			line = line[:i]
		}
	}
	return strings.TrimSpace(line)
}
