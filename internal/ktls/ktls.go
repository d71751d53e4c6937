// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ktls manages the kernel TLS offload module. Some kernels need
// `modprobe tls` before in-kernel TLS works; the bench loads it once,
// conditionally, before the server is exercised.
package ktls

import (
	"bufio"
	"context"
	"strings"

	"github.com/stagehand/stagehand/internal/runner"
)

// ModuleName is the kernel module that provides kTLS offload.
const ModuleName = "tls"

// State describes the kernel module situation on this machine.
type State int

const (
	// StateMissing means the module is known to the kernel but not loaded.
	StateMissing State = iota
	// StateLoaded means the module shows up in the loaded module list.
	StateLoaded
	// StateBuiltin means TLS support is compiled into the kernel image.
	StateBuiltin
	// StateUnsupported means this platform has no kernel module concept we
	// manage (anything that is not Linux).
	StateUnsupported
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateLoaded:
		return "loaded"
	case StateBuiltin:
		return "builtin"
	default:
		return "unsupported"
	}
}

// statusFunc allows tests to override module detection.
var statusFunc = Status

// Ensure loads the module when it is absent. It is a no-op for loaded,
// builtin and unsupported states. It returns the state after the call.
func Ensure(ctx context.Context, r runner.Runner) (State, error) {
	st, err := statusFunc()
	if err != nil {
		return st, err
	}
	if st != StateMissing {
		return st, nil
	}
	if _, err := r.Run(ctx, "modprobe", ModuleName); err != nil {
		return StateMissing, err
	}
	return StateLoaded, nil
}

// parseModuleList reports whether the named module appears in /proc/modules
// content. Each line starts with the module name followed by a space.
func parseModuleList(content, name string) bool {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == name {
			return true
		}
	}
	return false
}
