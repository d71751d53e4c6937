// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package verify runs smoke checks over a provisioned bench: the TLS key
// pair loads and has not expired, the virtual environment exists and holds
// the pinned packages, and (optionally) the service answers its health
// endpoint over TLS.
package verify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stagehand/stagehand/internal/certgen"
	"github.com/stagehand/stagehand/internal/pyenv"
)

// ProbeTimeout bounds the health probe round trip.
const ProbeTimeout = 4 * time.Second

// Report collects the outcome of the smoke checks.
type Report struct {
	CertOK          bool
	CertDaysLeft    int
	VenvOK          bool
	MissingPackages []string
	ProbeOK         bool
	ProbeStatus     int
}

// OK reports whether every executed check passed.
func (r Report) OK() bool {
	return r.CertOK && r.VenvOK && len(r.MissingPackages) == 0
}

// CheckCertPair verifies the certificate and key load as a pair and reports
// the remaining validity in days.
func CheckCertPair(certPath, keyPath string) (daysLeft int, err error) {
	return certgen.VerifyPair(certPath, keyPath)
}

// CheckEnv verifies the virtual environment exists and that every manifest
// package is installed. It returns the normalized names of missing packages.
func CheckEnv(ctx context.Context, env *pyenv.Env) ([]string, error) {
	if !env.Exists() {
		return nil, fmt.Errorf("virtual environment %s does not exist", env.Dir)
	}
	manifest, err := pyenv.ParseRequirements(env.Requirements)
	if err != nil {
		return nil, err
	}
	frozen, err := env.Freeze(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}
	return pyenv.Missing(frozen, manifest), nil
}

// Probe performs a TLS GET against the health endpoint, trusting only the
// provisioned certificate. A 2xx answer counts as healthy.
func Probe(ctx context.Context, certPath, address string, port int, healthPath string) (int, error) {
	pool, err := certgen.CertPool(certPath)
	if err != nil {
		return 0, err
	}

	client := &http.Client{
		Timeout: ProbeTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}

	url := fmt.Sprintf("https://%s/%s",
		net.JoinHostPort(address, strconv.Itoa(port)),
		strings.TrimPrefix(healthPath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("health probe failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("health probe returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Run executes the cert and venv checks and fills in a Report. The health
// probe is separate since it needs a running service.
func Run(ctx context.Context, certPath, keyPath string, env *pyenv.Env) Report {
	var rep Report

	if daysLeft, err := CheckCertPair(certPath, keyPath); err == nil {
		rep.CertOK = true
		rep.CertDaysLeft = daysLeft
	}

	missing, err := CheckEnv(ctx, env)
	if err == nil {
		rep.VenvOK = true
		rep.MissingPackages = missing
	}

	return rep
}
