// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stagehand/stagehand/internal/certgen"
	"github.com/stagehand/stagehand/internal/checker"
	"github.com/stagehand/stagehand/internal/ktls"
	"github.com/stagehand/stagehand/internal/model"
	"github.com/stagehand/stagehand/internal/pyenv"
	"github.com/stagehand/stagehand/internal/verify"
)

// Step names of the full pipeline, in execution order.
const (
	StepCheckTools  = "check-tools"
	StepCheckPython = "check-python"
	StepCheckPort   = "check-port"
	StepKTLS        = "ktls"
	StepCert        = "cert"
	StepVenv        = "venv"
	StepDeps        = "deps"
	StepVerify      = "verify"
)

func (e *Engine) allSteps() []Step {
	return []Step{
		{Name: StepCheckTools, Run: e.checkToolsStep},
		{Name: StepCheckPython, Run: e.checkPythonStep},
		{Name: StepCheckPort, Run: e.checkPortStep},
		{Name: StepKTLS, Run: e.ktlsStep},
		{Name: StepCert, Run: e.certStep},
		{Name: StepVenv, Run: e.venvStep},
		{Name: StepDeps, Run: e.depsStep},
		{Name: StepVerify, Run: e.verifyStep},
	}
}

func (e *Engine) env() *pyenv.Env {
	return pyenv.New(e.cfg.Env.Dir, e.cfg.Env.Python, e.cfg.Env.Requirements, e.run)
}

// checkToolsStep resolves the tool manifest against PATH. A missing manifest
// file skips the step rather than failing a bench that never configured one.
func (e *Engine) checkToolsStep(ctx context.Context) (string, []model.Artifact, error) {
	tools, err := checker.LoadManifest(e.cfg.Check.Manifest)
	if err != nil {
		return "", nil, fmt.Errorf("no tool manifest: %w", ErrSkip)
	}
	checked, err := checker.CheckTools(tools)
	if err != nil {
		return "", nil, err
	}
	installed := 0
	for _, t := range checked {
		if t.Installed {
			installed++
		}
	}
	return fmt.Sprintf("%d/%d tools installed", installed, len(checked)), nil, nil
}

func (e *Engine) checkPythonStep(ctx context.Context) (string, []model.Artifact, error) {
	major, minor, err := checker.CheckPythonVersion(ctx, e.run, e.cfg.Env.Python)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("python %d.%d", major, minor), nil, nil
}

func (e *Engine) checkPortStep(ctx context.Context) (string, []model.Artifact, error) {
	free, err := checker.CheckPort(e.cfg.Server.Address, e.cfg.Server.Port)
	if err != nil {
		return "", nil, err
	}
	if !free {
		return "", nil, fmt.Errorf("port %d on %s is already in use", e.cfg.Server.Port, e.cfg.Server.Address)
	}
	return fmt.Sprintf("port %d free", e.cfg.Server.Port), nil, nil
}

// ktlsStep loads the kernel TLS module when it is absent. Builtin and
// non-Linux hosts are recorded as skipped.
func (e *Engine) ktlsStep(ctx context.Context) (string, []model.Artifact, error) {
	state, err := ktls.Ensure(ctx, e.run)
	if err != nil {
		return "", nil, err
	}
	switch state {
	case ktls.StateBuiltin:
		return "tls module built into the kernel", nil, ErrSkip
	case ktls.StateUnsupported:
		return "kernel modules not supported on this platform", nil, ErrSkip
	}
	return "tls module loaded", nil, nil
}

// certStep generates the self-signed pair unless one already exists.
func (e *Engine) certStep(ctx context.Context) (string, []model.Artifact, error) {
	certPath, keyPath, notAfter, err := certgen.Generate(certgen.Options{
		Dir:        e.cfg.Cert.Dir,
		CommonName: e.cfg.Cert.CommonName,
		Hosts:      e.cfg.Cert.Hosts,
		Days:       e.cfg.Cert.Days,
		Algorithm:  e.cfg.Cert.Algorithm,
	})
	if errors.Is(err, certgen.ErrExists) {
		return "certificate already present", nil, ErrSkip
	}
	if err != nil {
		return "", nil, err
	}

	var fingerprint string
	if info, err := certgen.Inspect(certPath); err == nil {
		fingerprint = info.Fingerprint
	}
	artifacts := []model.Artifact{
		{Kind: model.ArtifactCert, Path: certPath, Fingerprint: fingerprint, NotAfter: notAfter},
		{Kind: model.ArtifactKey, Path: keyPath},
	}
	return fmt.Sprintf("generated %s", certPath), artifacts, nil
}

// venvStep creates the virtual environment when it does not exist yet.
func (e *Engine) venvStep(ctx context.Context) (string, []model.Artifact, error) {
	env := e.env()
	if env.Exists() {
		return "virtual environment already present", nil, ErrSkip
	}
	if err := env.Create(ctx); err != nil {
		return "", nil, err
	}
	if err := env.UpgradePip(ctx); err != nil {
		return "", nil, err
	}
	artifacts := []model.Artifact{{Kind: model.ArtifactVenv, Path: env.Dir}}
	return fmt.Sprintf("created %s", env.Dir), artifacts, nil
}

// depsStep installs the pinned packages into the virtual environment.
func (e *Engine) depsStep(ctx context.Context) (string, []model.Artifact, error) {
	env := e.env()
	if !env.Exists() {
		return "", nil, fmt.Errorf("virtual environment %s does not exist", env.Dir)
	}
	if err := env.Install(ctx); err != nil {
		return "", nil, err
	}
	manifest, err := pyenv.ParseRequirements(env.Requirements)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("installed %d packages", len(manifest)), nil, nil
}

// verifyStep runs the smoke checks over the freshly provisioned bench.
func (e *Engine) verifyStep(ctx context.Context) (string, []model.Artifact, error) {
	certPath, keyPath := certgen.Paths(e.cfg.Cert.Dir)
	rep := verify.Run(ctx, certPath, keyPath, e.env())
	if !rep.CertOK {
		return "", nil, fmt.Errorf("certificate pair does not verify")
	}
	if !rep.VenvOK {
		return "", nil, fmt.Errorf("virtual environment does not verify")
	}
	if len(rep.MissingPackages) > 0 {
		return "", nil, fmt.Errorf("packages missing from environment: %s", strings.Join(rep.MissingPackages, ", "))
	}
	return fmt.Sprintf("cert valid %d more days, all packages installed", rep.CertDaysLeft), nil, nil
}
