// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stagehand/stagehand/internal/config"
	"github.com/stagehand/stagehand/internal/model"
)

// recordingStore captures journal writes without a database.
type recordingStore struct {
	nextRunID int
	finished  string
	detail    string
	steps     []model.Step
	artifacts []model.Artifact
	actions   []string
}

func (r *recordingStore) CreateRun(time.Time) (int, error) {
	r.nextRunID++
	return r.nextRunID, nil
}

func (r *recordingStore) FinishRun(id int, status, detail string) error {
	r.finished = status
	r.detail = detail
	return nil
}

func (r *recordingStore) GetRun(int) (*model.Run, error)    { return nil, nil }
func (r *recordingStore) GetLatestRun() (*model.Run, error) { return nil, nil }
func (r *recordingStore) GetAllRuns() ([]model.Run, error)  { return nil, nil }

func (r *recordingStore) AddStep(runID int, step model.Step) (int, error) {
	r.steps = append(r.steps, step)
	return len(r.steps), nil
}

func (r *recordingStore) GetStepsForRun(int) ([]model.Step, error) { return r.steps, nil }

func (r *recordingStore) AddArtifact(runID int, a model.Artifact) (int, error) {
	r.artifacts = append(r.artifacts, a)
	return len(r.artifacts), nil
}

func (r *recordingStore) GetArtifactsForRun(int) ([]model.Artifact, error) { return r.artifacts, nil }
func (r *recordingStore) GetLatestArtifactByKind(string) (*model.Artifact, error) {
	return nil, nil
}
func (r *recordingStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) { return nil, nil }

func (r *recordingStore) LogAction(action, details string) error {
	r.actions = append(r.actions, action)
	return nil
}

func (r *recordingStore) ExportDataForBackup() (*model.BackupData, error) { return nil, nil }
func (r *recordingStore) ImportDataFromBackup(*model.BackupData) error    { return nil }

func okStep(name string) Step {
	return Step{Name: name, Run: func(context.Context) (string, []model.Artifact, error) {
		return name + " done", nil, nil
	}}
}

func failStep(name string) Step {
	return Step{Name: name, Run: func(context.Context) (string, []model.Artifact, error) {
		return "", nil, errors.New("boom")
	}}
}

func skipStep(name string) Step {
	return Step{Name: name, Run: func(context.Context) (string, []model.Artifact, error) {
		return "", nil, fmt.Errorf("nothing to do: %w", ErrSkip)
	}}
}

func TestRunStepsAllPass(t *testing.T) {
	st := &recordingStore{}
	e := New(config.Config{}, st, nil)

	res, err := e.runSteps(context.Background(), []Step{okStep("one"), okStep("two")})
	if err != nil {
		t.Fatalf("runSteps failed: %v", err)
	}
	if res.Status != model.RunComplete {
		t.Errorf("expected complete, got %s", res.Status)
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 step outcomes, got %d", len(res.Steps))
	}
	for _, s := range res.Steps {
		if s.Status != model.StepOK {
			t.Errorf("step %s should be ok, got %s", s.Name, s.Status)
		}
	}
	if st.finished != model.RunComplete {
		t.Errorf("run not finalized as complete: %q", st.finished)
	}
	if len(st.steps) != 2 {
		t.Errorf("steps not persisted: %d", len(st.steps))
	}
}

func TestRunStepsStopsAtFirstFailure(t *testing.T) {
	st := &recordingStore{}
	e := New(config.Config{}, st, nil)

	res, err := e.runSteps(context.Background(), []Step{
		okStep("one"), failStep("two"), okStep("three"),
	})
	if err == nil {
		t.Fatal("expected failure to propagate")
	}
	if res.Status != model.RunFailed {
		t.Errorf("expected failed run, got %s", res.Status)
	}
	if len(res.Steps) != 2 {
		t.Fatalf("pipeline must stop after the failing step, got %d outcomes", len(res.Steps))
	}
	if res.Steps[1].Status != model.StepFailed {
		t.Errorf("second step should be failed, got %s", res.Steps[1].Status)
	}
	if st.finished != model.RunFailed {
		t.Errorf("run not finalized as failed: %q", st.finished)
	}
	if st.detail == "" {
		t.Error("failure detail should be recorded on the run")
	}
}

func TestRunStepsSkippedContinues(t *testing.T) {
	st := &recordingStore{}
	e := New(config.Config{}, st, nil)

	res, err := e.runSteps(context.Background(), []Step{
		skipStep("ktls"), okStep("cert"),
	})
	if err != nil {
		t.Fatalf("skipped steps must not fail the run: %v", err)
	}
	if res.Steps[0].Status != model.StepSkipped {
		t.Errorf("expected skipped, got %s", res.Steps[0].Status)
	}
	if res.Steps[0].Detail == "" {
		t.Error("skip reason should be recorded")
	}
	if res.Status != model.RunComplete {
		t.Errorf("run with skips should still complete, got %s", res.Status)
	}
}

func TestRunStepsRecordsArtifacts(t *testing.T) {
	st := &recordingStore{}
	e := New(config.Config{}, st, nil)

	step := Step{Name: "cert", Run: func(context.Context) (string, []model.Artifact, error) {
		return "generated", []model.Artifact{{Kind: model.ArtifactCert, Path: "/tmp/cert.pem"}}, nil
	}}
	if _, err := e.runSteps(context.Background(), []Step{step}); err != nil {
		t.Fatal(err)
	}
	if len(st.artifacts) != 1 || st.artifacts[0].Kind != model.ArtifactCert {
		t.Fatalf("artifact not persisted: %+v", st.artifacts)
	}
}

func TestRunStepsContextCancelled(t *testing.T) {
	st := &recordingStore{}
	e := New(config.Config{}, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.runSteps(ctx, []Step{okStep("one")})
	if err == nil {
		t.Fatal("expected context error")
	}
	if res.Status != model.RunFailed {
		t.Errorf("cancelled run should be failed, got %s", res.Status)
	}
	if len(res.Steps) != 0 {
		t.Error("no step should execute after cancellation")
	}
}

func TestRunStepsObserver(t *testing.T) {
	e := New(config.Config{}, nil, nil)
	var seen []string
	e.SetObserver(func(s model.Step) { seen = append(seen, s.String()) })

	if _, err := e.runSteps(context.Background(), []Step{okStep("one"), okStep("two")}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "one: ok" {
		t.Errorf("observer not invoked per step: %v", seen)
	}
}

func TestStepsSelection(t *testing.T) {
	e := New(config.Config{}, nil, nil)

	all, err := e.Steps(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 8 {
		t.Fatalf("expected 8 pipeline steps, got %d", len(all))
	}
	if all[0].Name != StepCheckTools || all[len(all)-1].Name != StepVerify {
		t.Errorf("unexpected pipeline order: %s .. %s", all[0].Name, all[len(all)-1].Name)
	}

	subset, err := e.Steps([]string{StepCert, StepVenv})
	if err != nil {
		t.Fatal(err)
	}
	if len(subset) != 2 || subset[0].Name != StepCert {
		t.Errorf("unexpected subset: %+v", subset)
	}

	if _, err := e.Steps([]string{"no-such-step"}); err == nil {
		t.Fatal("expected error for unknown step name")
	}
}

func TestStepNames(t *testing.T) {
	e := New(config.Config{}, nil, nil)
	names := e.StepNames()
	want := []string{StepCheckTools, StepCheckPython, StepCheckPort, StepKTLS, StepCert, StepVenv, StepDeps, StepVerify}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: got %s, want %s", i, names[i], want[i])
		}
	}
}
