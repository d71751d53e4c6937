// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for Stagehand using the
// Cobra library. It defines the root command, subcommands (like up, cert,
// env), flags, and the main entry point for execution.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/config"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/i18n"
	"github.com/stagehand/stagehand/internal/logging"
)

var version = "dev" // this will be set by the linker

var (
	cfgFile   string
	debugMode bool
	cfg       config.Config
)

// main is the entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

// newRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagehand",
		Short: "Stagehand provisions local S3 test benches.",
		Long: `Stagehand prepares a machine for running an S3 compatibility test
suite: it generates the self-signed TLS certificate the service listens
with, loads the kernel TLS module where needed, creates the Python
virtual environment with the pinned dependencies, and records every
provisioning run in a journal.

Run 'stagehand up' to provision everything in one go.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(cmd, config.Defaults(), &cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			i18n.Init(cfg.Language)
			// First run, or the config file was deleted. Persist the
			// defaults so later runs have a file to inspect.
			if config.FileUsed() == "" && cfgFile == "" {
				if writeErr := config.WriteConfigFile(&cfg, false); writeErr != nil {
					logging.Warnf("could not write default config file: %v", writeErr)
				} else {
					fmt.Println(i18n.T("config.created_default"))
				}
			}
			logging.SetDebug(debugMode)
			db.SetDebug(debugMode)
			if err := db.InitDB(cfg.Database.Type, cfg.Database.DSN); err != nil {
				return errors.New(i18n.T("config.error_init_db", err))
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd)
	cmd.AddCommand(checkCmd)
	cmd.AddCommand(newCertCmd())
	cmd.AddCommand(ktlsCmd)
	cmd.AddCommand(newEnvCmd())
	cmd.AddCommand(verifyCmd)
	cmd.AddCommand(journalCmd)
	cmd.AddCommand(backupCmd)
	cmd.AddCommand(restoreCmd)
	cmd.AddCommand(maintainCmd)

	cmd.Version = version

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is stagehand.yaml in the user config dir, /etc/stagehand, or the current directory)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	cmd.PersistentFlags().String("database.type", "sqlite", "journal database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "./stagehand.db", "journal database connection string (DSN)")
	cmd.PersistentFlags().String("language", "en", `output language ("en", "de")`)

	return cmd
}
