//go:build linux

// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package ktls

import (
	"fmt"
	"os"
)

const (
	procModulesPath = "/proc/modules"
	sysModulePath   = "/sys/module/" + ModuleName
)

// Status inspects the running kernel. A module present under /sys/module
// but absent from /proc/modules is compiled into the kernel image.
func Status() (State, error) {
	content, err := os.ReadFile(procModulesPath)
	if err != nil {
		return StateMissing, fmt.Errorf("failed to read %s: %w", procModulesPath, err)
	}
	if parseModuleList(string(content), ModuleName) {
		return StateLoaded, nil
	}
	if _, err := os.Stat(sysModulePath); err == nil {
		return StateBuiltin, nil
	}
	return StateMissing, nil
}
