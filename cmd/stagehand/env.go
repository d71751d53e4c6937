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
	"github.com/stagehand/stagehand/internal/pyenv"
	"github.com/stagehand/stagehand/internal/runner"
)

// newEnvCmd builds the 'env' command tree: create, sync, freeze.
func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the Python virtual environment",
	}
	cmd.AddCommand(envCreateCmd)
	cmd.AddCommand(envSyncCmd)
	cmd.AddCommand(envFreezeCmd)
	return cmd
}

func benchEnv() *pyenv.Env {
	return pyenv.New(cfg.Env.Dir, cfg.Env.Python, cfg.Env.Requirements, runner.New())
}

// envCreateCmd creates the virtual environment and upgrades pip in it.
var envCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the virtual environment",
	Run: func(cmd *cobra.Command, args []string) {
		env := benchEnv()
		if err := env.Create(cmd.Context()); err != nil {
			log.Fatal(i18n.T("env.error_create", err))
		}
		fmt.Println(i18n.T("env.created", env.Dir))
		if err := env.UpgradePip(cmd.Context()); err != nil {
			log.Fatal(i18n.T("env.error_install", err))
		}
		_ = db.LogAction("CREATE_ENV", "dir: "+env.Dir)
		fmt.Println(i18n.T("env.pip_upgraded"))
	},
}

// envSyncCmd installs the pinned dependencies into the environment.
var envSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Install the pinned dependencies into the environment",
	Run: func(cmd *cobra.Command, args []string) {
		env := benchEnv()
		if err := env.Install(cmd.Context()); err != nil {
			log.Fatal(i18n.T("env.error_install", err))
		}
		_ = db.LogAction("SYNC_ENV", "requirements: "+env.Requirements)
		fmt.Println(i18n.T("env.synced", env.Requirements))
	},
}

// envFreezeCmd prints the installed package pins.
var envFreezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "List the packages installed in the environment",
	Run: func(cmd *cobra.Command, args []string) {
		env := benchEnv()
		pins, err := env.Freeze(cmd.Context())
		if err != nil {
			log.Fatalf("Error listing packages: %v", err)
		}
		for _, pin := range pins {
			fmt.Println(pin)
		}
	},
}
