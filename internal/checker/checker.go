// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package checker verifies the host satisfies the bench requirements: the
// tools from the verification manifest are installed, the Python
// interpreter is recent enough, and the server port is free.
package checker

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/stagehand/stagehand/internal/model"
	"github.com/stagehand/stagehand/internal/runner"
	"gopkg.in/yaml.v3"
)

// Required interpreter floor, matching the suite's oldest supported runtime.
const (
	RequiredMajor = 3
	RequiredMinor = 8
)

// lookPath allows tests to stub tool resolution.
var lookPath = exec.LookPath

// LoadManifest reads the YAML tool manifest.
func LoadManifest(path string) ([]model.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool manifest %s: %w", path, err)
	}
	var tools []model.Tool
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("failed to parse tool manifest %s: %w", path, err)
	}
	return tools, nil
}

// CheckTools resolves every manifest entry on PATH (or by explicit path),
// concurrently, and marks the installed ones. It returns the checked list
// and an error when any required tool is missing.
func CheckTools(tools []model.Tool) ([]model.Tool, error) {
	var wg sync.WaitGroup
	checked := make([]model.Tool, len(tools))

	for i, tool := range tools {
		wg.Add(1)
		go func(i int, tool model.Tool) {
			defer wg.Done()
			tool.Installed = isInstalled(tool)
			checked[i] = tool
		}(i, tool)
	}
	wg.Wait()

	var missingRequired []string
	for _, tool := range checked {
		if !tool.Installed && tool.Required {
			missingRequired = append(missingRequired, tool.Name)
		}
	}
	if len(missingRequired) > 0 {
		return checked, fmt.Errorf("required tools missing: %s", strings.Join(missingRequired, ", "))
	}
	return checked, nil
}

func isInstalled(tool model.Tool) bool {
	if _, err := lookPath(tool.Name); err == nil {
		return true
	}
	if tool.Path != "" {
		if _, err := lookPath(tool.Path); err == nil {
			return true
		}
	}
	return false
}

var pythonVersionRe = regexp.MustCompile(`Python (\d+)\.(\d+)`)

// CheckPythonVersion runs `<python> --version` and enforces the 3.8 floor.
// It returns the detected major/minor pair.
func CheckPythonVersion(ctx context.Context, r runner.Runner, python string) (major, minor int, err error) {
	if python == "" {
		python = "python3"
	}
	res, err := r.Run(ctx, python, "--version")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to run %s: %w", python, err)
	}

	// Python 2 printed the version on stderr.
	out := strings.TrimSpace(res.Stdout + res.Stderr)
	m := pythonVersionRe.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("could not parse interpreter version from %q", out)
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])

	if major != RequiredMajor || minor < RequiredMinor {
		return major, minor, fmt.Errorf("python version must be >= %d.%d, found %d.%d",
			RequiredMajor, RequiredMinor, major, minor)
	}
	return major, minor, nil
}

// CheckPort reports whether the server listen port is free by attempting to
// bind it. The listener is closed immediately; the port stays free.
func CheckPort(address string, port int) (free bool, err error) {
	addr := net.JoinHostPort(address, strconv.Itoa(port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		// Distinguish "in use" from unbindable addresses.
		if strings.Contains(err.Error(), "address already in use") ||
			strings.Contains(err.Error(), "Only one usage") {
			return false, nil
		}
		return false, fmt.Errorf("could not probe %s: %w", addr, err)
	}
	_ = l.Close()
	return true, nil
}
