//go:build !linux

// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package ktls

// Status reports that kernel module management is not available here.
func Status() (State, error) {
	return StateUnsupported, nil
}
