// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package provision drives the bench provisioning pipeline. Steps run
// sequentially and the pipeline stops at the first failure; every step
// outcome is recorded in the journal.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagehand/stagehand/internal/config"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/logging"
	"github.com/stagehand/stagehand/internal/model"
	"github.com/stagehand/stagehand/internal/runner"
)

// ErrSkip marks a step that decided it has nothing to do. The pipeline
// records it as skipped and continues.
var ErrSkip = errors.New("step skipped")

// StepFunc executes one provisioning step. It returns a human-readable
// detail line and any artifacts the step produced.
type StepFunc func(ctx context.Context) (detail string, artifacts []model.Artifact, err error)

// Step pairs a stable name with its implementation.
type Step struct {
	Name string
	Run  StepFunc
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID  int
	Status string
	Steps  []model.Step
}

// Engine executes provisioning steps against a configuration and records
// them in the journal store.
type Engine struct {
	cfg      config.Config
	store    db.Store
	run      runner.Runner
	observer func(model.Step)
}

// New returns an Engine for the given configuration. The store may be nil
// for dry runs; outcomes are then not persisted.
func New(cfg config.Config, store db.Store, r runner.Runner) *Engine {
	if r == nil {
		r = runner.New()
	}
	return &Engine{cfg: cfg, store: store, run: r}
}

// SetObserver registers a callback invoked after every step completes. Used
// by the progress UI.
func (e *Engine) SetObserver(fn func(model.Step)) {
	e.observer = fn
}

// Steps resolves the requested step names into executable steps. An empty
// list selects the full pipeline.
func (e *Engine) Steps(names []string) ([]Step, error) {
	all := e.allSteps()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Step, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]Step, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown step %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// StepNames returns the names of the full pipeline in execution order.
func (e *Engine) StepNames() []string {
	all := e.allSteps()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Run executes the selected steps in order, stopping at the first failure.
// Remaining steps are not recorded. The returned error is the failing
// step's error, or nil when every step passed or was skipped.
func (e *Engine) Run(ctx context.Context, names []string) (Result, error) {
	steps, err := e.Steps(names)
	if err != nil {
		return Result{}, err
	}
	return e.runSteps(ctx, steps)
}

func (e *Engine) runSteps(ctx context.Context, steps []Step) (Result, error) {
	var res Result
	res.Status = model.RunComplete

	if e.store != nil {
		id, err := e.store.CreateRun(time.Now().UTC())
		if err != nil {
			return Result{}, fmt.Errorf("failed to record run: %w", err)
		}
		res.RunID = id
		_ = e.store.LogAction("PROVISION_START", fmt.Sprintf("run_id: %d, steps: %d", id, len(steps)))
	}

	var failure error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			failure = err
			res.Status = model.RunFailed
			break
		}

		logging.Debugf("step %s: starting", step.Name)
		start := time.Now()
		detail, artifacts, err := step.Run(ctx)
		outcome := model.Step{
			RunID:    res.RunID,
			Name:     step.Name,
			Detail:   detail,
			Duration: time.Since(start),
		}
		switch {
		case err == nil:
			outcome.Status = model.StepOK
		case errors.Is(err, ErrSkip):
			outcome.Status = model.StepSkipped
			if detail == "" {
				outcome.Detail = err.Error()
			}
		default:
			outcome.Status = model.StepFailed
			outcome.Detail = err.Error()
			failure = fmt.Errorf("step %s failed: %w", step.Name, err)
		}

		e.record(&outcome, artifacts)
		res.Steps = append(res.Steps, outcome)
		logging.Debugf("step %s: %s (%s)", step.Name, outcome.Status, outcome.Duration)

		if outcome.Status == model.StepFailed {
			res.Status = model.RunFailed
			break
		}
	}

	if e.store != nil {
		detail := ""
		if failure != nil {
			detail = failure.Error()
		}
		if err := e.store.FinishRun(res.RunID, res.Status, detail); err != nil {
			logging.Warnf("failed to finalize run %d: %v", res.RunID, err)
		}
	}
	return res, failure
}

func (e *Engine) record(outcome *model.Step, artifacts []model.Artifact) {
	if e.store != nil {
		if id, err := e.store.AddStep(outcome.RunID, *outcome); err == nil {
			outcome.ID = id
		} else {
			logging.Warnf("failed to record step %s: %v", outcome.Name, err)
		}
		for _, a := range artifacts {
			if _, err := e.store.AddArtifact(outcome.RunID, a); err != nil {
				logging.Warnf("failed to record artifact %s: %v", a.Path, err)
			}
		}
	}
	if e.observer != nil {
		e.observer(*outcome)
	}
}
