// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/checker"
	"github.com/stagehand/stagehand/internal/i18n"
	"github.com/stagehand/stagehand/internal/runner"
)

// checkCmd verifies the host satisfies the bench requirements without
// changing anything.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check host requirements (tools, Python version, free port)",
	Long: `Resolves every tool from the verification manifest, checks the
configured Python interpreter is recent enough, and probes whether the
server port is free. Nothing is installed or modified.`,
	Run: func(cmd *cobra.Command, args []string) {
		failed := false

		tools, err := checker.LoadManifest(cfg.Check.Manifest)
		if err != nil {
			log.Fatalf("Error loading tool manifest: %v", err)
		}
		checked, _ := checker.CheckTools(tools)
		for _, tool := range checked {
			switch {
			case tool.Installed:
				fmt.Println(i18n.T("check.tool_ok", tool.Name))
			case tool.Required:
				fmt.Println(i18n.T("check.tool_missing_required", tool.Name, tool.Helper))
				failed = true
			default:
				fmt.Println(i18n.T("check.tool_missing_optional", tool.Name))
			}
		}

		major, minor, err := checker.CheckPythonVersion(cmd.Context(), runner.New(), cfg.Env.Python)
		if err != nil {
			fmt.Println(i18n.T("check.python_bad", checker.RequiredMajor, checker.RequiredMinor, major, minor))
			failed = true
		} else {
			fmt.Println(i18n.T("check.python_ok", major, minor))
		}

		free, err := checker.CheckPort(cfg.Server.Address, cfg.Server.Port)
		if err != nil {
			log.Fatalf("Error probing port: %v", err)
		}
		if free {
			fmt.Println(i18n.T("check.port_free", cfg.Server.Port))
		} else {
			fmt.Println(i18n.T("check.port_busy", cfg.Server.Port))
			failed = true
		}

		if failed {
			os.Exit(1)
		}
	},
}
