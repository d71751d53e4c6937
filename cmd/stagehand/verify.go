// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/certgen"
	"github.com/stagehand/stagehand/internal/i18n"
	"github.com/stagehand/stagehand/internal/verify"
)

var verifyProbe bool

// verifyCmd runs the smoke checks over an already provisioned bench.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Smoke-check the provisioned bench",
	Long: `Verifies the certificate pair loads and has not expired and that the
virtual environment holds every pinned package. With --probe it also
performs a TLS request against the service's health endpoint, trusting
only the provisioned certificate.`,
	Run: func(cmd *cobra.Command, args []string) {
		certPath, keyPath := certgen.Paths(cfg.Cert.Dir)
		rep := verify.Run(cmd.Context(), certPath, keyPath, benchEnv())

		if !rep.CertOK {
			log.Fatalf("Certificate verification failed; run 'stagehand cert verify' for details.")
		}
		if !rep.VenvOK {
			log.Fatalf("Virtual environment verification failed; run 'stagehand up' to provision it.")
		}
		if len(rep.MissingPackages) > 0 {
			log.Fatal(i18n.T("verify.packages_missing", strings.Join(rep.MissingPackages, ", ")))
		}

		if verifyProbe {
			status, err := verify.Probe(cmd.Context(), certPath, cfg.Server.Address, cfg.Server.Port, cfg.Server.HealthPath)
			if err != nil {
				log.Fatal(i18n.T("verify.probe_failed", cfg.Server.HealthPath, err))
			}
			fmt.Println(i18n.T("verify.probe_ok", cfg.Server.HealthPath, status))
		}

		fmt.Println(i18n.T("verify.ok"))
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyProbe, "probe", false, "also probe the service health endpoint over TLS")
}
