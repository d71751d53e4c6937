// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/bundle"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/i18n"
)

// backupCmd writes the journal as a compressed support bundle.
var backupCmd = &cobra.Command{
	Use:   "backup [file]",
	Short: "Write the journal to a compressed support bundle",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		if err := bundle.WriteFile(path, journalStore()); err != nil {
			log.Fatalf("Error writing bundle: %v", err)
		}
		_ = db.LogAction("BACKUP", "path: "+path)
		fmt.Println(i18n.T("backup.written", path))
	},
}

// restoreCmd replaces the journal contents from a support bundle.
var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Restore the journal from a support bundle",
	Long:  `Replaces the whole journal with the contents of the bundle file.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		if err := bundle.RestoreFile(path, journalStore()); err != nil {
			log.Fatalf("Error restoring bundle: %v", err)
		}
		_ = db.LogAction("RESTORE", "path: "+path)
		fmt.Println(i18n.T("backup.restored", path))
	},
}

// maintainCmd runs engine-specific database maintenance on the journal.
var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run database maintenance on the journal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := db.RunDBMaintenance(cfg.Database.Type, cfg.Database.DSN); err != nil {
			log.Fatalf("Error running maintenance: %v", err)
		}
		fmt.Println("Journal maintenance complete.")
	},
}
