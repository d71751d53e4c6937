// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package runner executes external commands for the provisioning steps.
// Provisioning leans on system tools (modprobe, the Python interpreter, pip),
// so every step that shells out goes through the Runner interface, which
// keeps the steps testable without touching the host.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result captures the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts command execution.
type Runner interface {
	// Run executes the command and blocks until it exits. A non-zero exit
	// code is returned as an error carrying the trailing stderr line.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands on the host via os/exec.
type ExecRunner struct {
	// Dir, when set, is the working directory for every command.
	Dir string
}

// New returns a host-backed runner.
func New() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, capturing stdout and stderr. Context
// cancellation kills the process.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with code %d: %s", name, res.ExitCode, lastLine(res.Stderr))
		}
		// The command never started (binary missing, permission denied).
		return res, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return res, nil
}

// lastLine returns the final non-empty line of s, for compact error messages.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no error output"
}
