// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/i18n"
	"github.com/stagehand/stagehand/internal/model"
	"github.com/stagehand/stagehand/internal/provision"
	"github.com/stagehand/stagehand/internal/tui"
	"golang.org/x/term"
)

var (
	upSteps []string
	upPlain bool
)

// upCmd runs the full provisioning pipeline, or a subset of it when --step
// is given.
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the test bench",
	Long: `Runs the provisioning pipeline: host checks, kernel TLS module,
self-signed certificate, Python virtual environment and dependencies,
followed by a smoke verification. The pipeline stops at the first
failing step. Each run is recorded in the journal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := provision.New(cfg, journalStore(), nil)

		if !upPlain && term.IsTerminal(int(os.Stdout.Fd())) {
			res, err := tui.RunPipeline(cmd.Context(), engine, upSteps)
			return reportRun(res, err)
		}

		steps, err := engine.Steps(upSteps)
		if err != nil {
			return err
		}
		fmt.Println(i18n.T("up.starting", len(steps)))
		engine.SetObserver(printStep)
		res, err := engine.Run(cmd.Context(), upSteps)
		return reportRun(res, err)
	},
}

func init() {
	upCmd.Flags().StringSliceVar(&upSteps, "step", nil, "run only the named steps (repeatable)")
	upCmd.Flags().BoolVar(&upPlain, "plain", false, "plain line output instead of the progress view")
}

// journalStore adapts the initialized db package facade into a db.Store.
// PersistentPreRunE guarantees InitDB ran before any RunE.
func journalStore() db.Store {
	return facadeStore{}
}

func printStep(s model.Step) {
	switch s.Status {
	case model.StepOK:
		fmt.Println(i18n.T("step.ok", s.Name, s.Duration.Round(time.Millisecond).String()))
	case model.StepSkipped:
		fmt.Println(i18n.T("step.skipped", s.Name, s.Detail))
	default:
		fmt.Println(i18n.T("step.failed", s.Name, errors.New(s.Detail)))
	}
}

func reportRun(res provision.Result, err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Println(i18n.T("up.aborted"))
		return nil
	}
	if err != nil {
		failed := "?"
		for _, s := range res.Steps {
			if s.Status == model.StepFailed {
				failed = s.Name
			}
		}
		return errors.New(i18n.T("up.failed", failed, err))
	}
	fmt.Println(i18n.T("up.complete"))
	return nil
}
