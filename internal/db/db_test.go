// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"testing"
	"time"

	"github.com/stagehand/stagehand/internal/model"
)

// initTestDB points the package store at a fresh in-memory SQLite database.
func initTestDB(t *testing.T) {
	t.Helper()
	if err := InitDB("sqlite", ":memory:"); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { store = nil })
}

func TestRunLifecycle(t *testing.T) {
	initTestDB(t)

	started := time.Now().UTC().Truncate(time.Second)
	id, err := CreateRun(started)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run ID")
	}

	run, err := GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("run not found")
	}
	if run.Status != model.RunRunning {
		t.Errorf("new run should be running, got %q", run.Status)
	}
	if !run.FinishedAt.IsZero() {
		t.Errorf("unfinished run should have zero FinishedAt, got %v", run.FinishedAt)
	}

	if err := FinishRun(id, model.RunComplete, "all steps ok"); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	run, err = GetRun(id)
	if err != nil {
		t.Fatalf("GetRun after finish failed: %v", err)
	}
	if run.Status != model.RunComplete {
		t.Errorf("expected status %q, got %q", model.RunComplete, run.Status)
	}
	if run.FinishedAt.IsZero() {
		t.Error("finished run should have FinishedAt set")
	}
	if run.Detail != "all steps ok" {
		t.Errorf("unexpected detail: %q", run.Detail)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	initTestDB(t)
	if err := FinishRun(9999, model.RunFailed, ""); err == nil {
		t.Fatal("expected error for unknown run ID")
	}
}

func TestGetRunNotFound(t *testing.T) {
	initTestDB(t)
	run, err := GetRun(42)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run != nil {
		t.Fatal("expected nil for missing run")
	}
}

func TestGetLatestRun(t *testing.T) {
	initTestDB(t)

	latest, err := GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun on empty journal failed: %v", err)
	}
	if latest != nil {
		t.Fatal("empty journal should yield nil latest run")
	}

	base := time.Now().UTC().Truncate(time.Second)
	if _, err := CreateRun(base.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	newest, err := CreateRun(base)
	if err != nil {
		t.Fatal(err)
	}

	latest, err = GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun failed: %v", err)
	}
	if latest == nil || latest.ID != newest {
		t.Fatalf("expected run %d as latest, got %+v", newest, latest)
	}

	runs, err := GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newest {
		t.Error("runs should be ordered most recent first")
	}
}

func TestStepsForRun(t *testing.T) {
	initTestDB(t)

	runID, err := CreateRun(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}

	steps := []model.Step{
		{Name: "check-tools", Status: model.StepOK, Duration: 120 * time.Millisecond},
		{Name: "cert", Status: model.StepOK, Duration: 40 * time.Millisecond},
		{Name: "venv", Status: model.StepFailed, Detail: "pip install failed"},
	}
	for _, s := range steps {
		if _, err := AddStep(runID, s); err != nil {
			t.Fatalf("AddStep(%s) failed: %v", s.Name, err)
		}
	}

	got, err := GetStepsForRun(runID)
	if err != nil {
		t.Fatalf("GetStepsForRun failed: %v", err)
	}
	if len(got) != len(steps) {
		t.Fatalf("expected %d steps, got %d", len(steps), len(got))
	}
	for i, s := range got {
		if s.Name != steps[i].Name || s.Status != steps[i].Status {
			t.Errorf("step %d mismatch: got %s, want %s", i, s, steps[i])
		}
	}
	if got[0].Duration != 120*time.Millisecond {
		t.Errorf("duration not preserved: %v", got[0].Duration)
	}
	if got[2].Detail != "pip install failed" {
		t.Errorf("detail not preserved: %q", got[2].Detail)
	}
}

func TestArtifacts(t *testing.T) {
	initTestDB(t)

	runID, err := CreateRun(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}

	notAfter := time.Now().UTC().AddDate(0, 0, 365).Truncate(time.Second)
	if _, err := AddArtifact(runID, model.Artifact{
		Kind:        model.ArtifactCert,
		Path:        "/tmp/cert.pem",
		Fingerprint: "AA:BB",
		NotAfter:    notAfter,
	}); err != nil {
		t.Fatalf("AddArtifact failed: %v", err)
	}
	if _, err := AddArtifact(runID, model.Artifact{Kind: model.ArtifactVenv, Path: "/tmp/.venv"}); err != nil {
		t.Fatalf("AddArtifact failed: %v", err)
	}

	arts, err := GetArtifactsForRun(runID)
	if err != nil {
		t.Fatalf("GetArtifactsForRun failed: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(arts))
	}
	if arts[0].Fingerprint != "AA:BB" {
		t.Errorf("fingerprint not preserved: %q", arts[0].Fingerprint)
	}
	if arts[0].NotAfter.IsZero() {
		t.Error("cert artifact should carry NotAfter")
	}
	if !arts[1].NotAfter.IsZero() {
		t.Error("venv artifact should have zero NotAfter")
	}

	latest, err := GetLatestArtifactByKind(model.ArtifactCert)
	if err != nil {
		t.Fatalf("GetLatestArtifactByKind failed: %v", err)
	}
	if latest == nil || latest.Path != "/tmp/cert.pem" {
		t.Fatalf("unexpected latest cert artifact: %+v", latest)
	}

	missing, err := GetLatestArtifactByKind(model.ArtifactKey)
	if err != nil {
		t.Fatalf("GetLatestArtifactByKind failed: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for never-recorded kind")
	}
}

func TestAuditLog(t *testing.T) {
	initTestDB(t)

	if err := LogAction("PROVISION_START", "run_id: 1"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}
	if err := LogAction("GENERATE_CERT", "path: /tmp/cert.pem"); err != nil {
		t.Fatalf("LogAction failed: %v", err)
	}

	entries, err := GetAllAuditLogEntries()
	if err != nil {
		t.Fatalf("GetAllAuditLogEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Username == "" {
			t.Error("audit entries should record a username")
		}
	}
}

func TestBackupRoundtrip(t *testing.T) {
	initTestDB(t)

	runID, err := CreateRun(time.Now().UTC().Truncate(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AddStep(runID, model.Step{Name: "ktls", Status: model.StepSkipped}); err != nil {
		t.Fatal(err)
	}
	if _, err := AddArtifact(runID, model.Artifact{Kind: model.ArtifactKey, Path: "/tmp/key.pem"}); err != nil {
		t.Fatal(err)
	}
	if err := FinishRun(runID, model.RunComplete, ""); err != nil {
		t.Fatal(err)
	}

	backup, err := ExportDataForBackup()
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}
	if len(backup.Runs) != 1 || len(backup.Steps) != 1 || len(backup.Artifacts) != 1 {
		t.Fatalf("unexpected backup shape: %d runs, %d steps, %d artifacts",
			len(backup.Runs), len(backup.Steps), len(backup.Artifacts))
	}
	if len(backup.AuditLog) == 0 {
		t.Fatal("backup should carry the audit log")
	}

	// Restore into a second, empty database.
	if err := InitDB("sqlite", ":memory:"); err != nil {
		t.Fatalf("InitDB for restore failed: %v", err)
	}
	if err := ImportDataFromBackup(backup); err != nil {
		t.Fatalf("ImportDataFromBackup failed: %v", err)
	}

	runs, err := GetAllRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != model.RunComplete {
		t.Fatalf("restored runs wrong: %+v", runs)
	}
	steps, err := GetStepsForRun(runs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 || steps[0].Name != "ktls" {
		t.Fatalf("restored steps wrong: %+v", steps)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	initTestDB(t)

	// Running migrations again on the same store must be a no-op.
	s, ok := store.(*SqliteStore)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}
	if err := RunMigrations(s.bun.DB, "sqlite"); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
}

func TestInitDBUnknownType(t *testing.T) {
	if err := InitDB("oracle", "dsn"); err == nil {
		t.Fatal("expected error for unsupported db type")
	}
}

func TestIsInitialized(t *testing.T) {
	store = nil
	if IsInitialized() {
		t.Error("store should not be initialized")
	}
	initTestDB(t)
	if !IsInitialized() {
		t.Error("store should be initialized")
	}
}
