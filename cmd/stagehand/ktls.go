// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/i18n"
	"github.com/stagehand/stagehand/internal/ktls"
	"github.com/stagehand/stagehand/internal/runner"
)

// ktlsCmd makes sure the kernel TLS module is available. The service uses
// kTLS offload when the module is present.
var ktlsCmd = &cobra.Command{
	Use:   "ktls",
	Short: "Load the kernel TLS module if it is missing",
	Run: func(cmd *cobra.Command, args []string) {
		before, err := ktls.Status()
		if err != nil {
			log.Fatal(i18n.T("ktls.error", err))
		}
		state, err := ktls.Ensure(cmd.Context(), runner.New())
		if err != nil {
			log.Fatal(i18n.T("ktls.error", err))
		}
		switch {
		case state == ktls.StateBuiltin:
			fmt.Println(i18n.T("ktls.builtin"))
		case state == ktls.StateUnsupported:
			fmt.Println(i18n.T("ktls.unsupported"))
		case before == ktls.StateLoaded:
			fmt.Println(i18n.T("ktls.already"))
		default:
			_ = db.LogAction("LOAD_KTLS", "module: "+ktls.ModuleName)
			fmt.Println(i18n.T("ktls.loaded"))
		}
	},
}
