// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/model"
)

func findSubcommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// TestRootCmd_Subcommands verifies the command tree is wired.
func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"up", "check", "cert", "ktls", "env", "verify", "journal", "backup", "restore", "maintain"} {
		if findSubcommand(root, name) == nil {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

// TestUpCmd_HelpText verifies up command help text is present
func TestUpCmd_HelpText(t *testing.T) {
	up := findSubcommand(newRootCmd(), "up")
	if up == nil {
		t.Fatalf("up command not found")
	}
	if up.Short == "" {
		t.Fatalf("up command missing short help")
	}
	if !strings.Contains(up.Long, "pipeline") {
		t.Fatalf("up help should mention the pipeline, got: %s", up.Long)
	}
	if up.Flags().Lookup("step") == nil {
		t.Fatal("up command should accept --step")
	}
	if up.Flags().Lookup("plain") == nil {
		t.Fatal("up command should accept --plain")
	}
}

// TestCertCmd_Tree verifies the cert command tree and flags.
func TestCertCmd_Tree(t *testing.T) {
	cert := findSubcommand(newRootCmd(), "cert")
	if cert == nil {
		t.Fatalf("cert command not found")
	}
	gen := findSubcommand(cert, "generate")
	if gen == nil {
		t.Fatal("cert generate not found")
	}
	if gen.Flags().Lookup("force") == nil {
		t.Fatal("cert generate should accept --force")
	}
	show := findSubcommand(cert, "show")
	if show == nil || show.Flags().Lookup("copy") == nil {
		t.Fatal("cert show should exist and accept --copy")
	}
	if findSubcommand(cert, "verify") == nil {
		t.Fatal("cert verify not found")
	}
}

// TestEnvCmd_Tree verifies the env command tree.
func TestEnvCmd_Tree(t *testing.T) {
	env := findSubcommand(newRootCmd(), "env")
	if env == nil {
		t.Fatalf("env command not found")
	}
	for _, name := range []string{"create", "sync", "freeze"} {
		if findSubcommand(env, name) == nil {
			t.Errorf("env %s not found", name)
		}
	}
}

// TestVerifyCmd_ProbeFlag verifies the probe flag exists.
func TestVerifyCmd_ProbeFlag(t *testing.T) {
	v := findSubcommand(newRootCmd(), "verify")
	if v == nil {
		t.Fatalf("verify command not found")
	}
	if v.Flags().Lookup("probe") == nil {
		t.Fatal("verify command should accept --probe")
	}
}

// TestBackupRestoreArgs verifies both commands demand a file argument.
func TestBackupRestoreArgs(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"backup", "restore"} {
		c := findSubcommand(root, name)
		if c == nil {
			t.Fatalf("%s command not found", name)
		}
		if err := c.Args(c, nil); err == nil {
			t.Errorf("%s should require a file argument", name)
		}
		if err := c.Args(c, []string{"bundle.zst"}); err != nil {
			t.Errorf("%s should accept one file argument: %v", name, err)
		}
	}
}

// TestFacadeStore verifies the CLI store adapter round-trips through the
// package facade.
func TestFacadeStore(t *testing.T) {
	if err := db.InitDB("sqlite", ":memory:"); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	st := journalStore()
	id, err := st.CreateRun(time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateRun via facade failed: %v", err)
	}
	if _, err := st.AddStep(id, model.Step{Name: "cert", Status: model.StepOK}); err != nil {
		t.Fatalf("AddStep via facade failed: %v", err)
	}
	if err := st.FinishRun(id, model.RunComplete, ""); err != nil {
		t.Fatalf("FinishRun via facade failed: %v", err)
	}

	run, err := st.GetLatestRun()
	if err != nil || run == nil {
		t.Fatalf("GetLatestRun via facade failed: %v", err)
	}
	if run.Status != model.RunComplete {
		t.Errorf("unexpected run status %q", run.Status)
	}
}
