// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/i18n"
)

var journalAudit bool

// journalCmd lists past provisioning runs with their step outcomes.
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show past provisioning runs",
	Run: func(cmd *cobra.Command, args []string) {
		runs, err := db.GetAllRuns()
		if err != nil {
			log.Fatalf("Error reading journal: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println(i18n.T("journal.empty"))
			return
		}

		for _, run := range runs {
			fmt.Println(i18n.T("journal.run_line", run.ID, run.StartedAt.Format(time.RFC3339), run.Status))
			steps, err := db.GetStepsForRun(run.ID)
			if err != nil {
				continue
			}
			for _, step := range steps {
				fmt.Printf("  %s\n", step)
				if step.Detail != "" {
					fmt.Printf("    %s\n", step.Detail)
				}
			}
			artifacts, err := db.GetArtifactsForRun(run.ID)
			if err != nil {
				continue
			}
			for _, a := range artifacts {
				fmt.Printf("  [%s] %s\n", a.Kind, a.Path)
			}
		}

		if journalAudit {
			entries, err := db.GetAllAuditLogEntries()
			if err != nil {
				log.Fatalf("Error reading audit log: %v", err)
			}
			fmt.Println(i18n.T("journal.audit_header"))
			for _, e := range entries {
				fmt.Printf("  %s  %s  %s  %s\n", e.Timestamp, e.Username, e.Action, e.Details)
			}
		}
	},
}

func init() {
	journalCmd.Flags().BoolVar(&journalAudit, "audit", false, "also print the audit log")
}
