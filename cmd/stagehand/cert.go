// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/stagehand/stagehand/internal/certgen"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/i18n"
)

// newCertCmd builds the 'cert' command tree: generate, show, verify.
func newCertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Manage the bench TLS certificate",
	}
	cmd.AddCommand(certGenerateCmd)
	cmd.AddCommand(certShowCmd)
	cmd.AddCommand(certVerifyCmd)
	return cmd
}

var certForce bool

// certGenerateCmd creates the self-signed pair the bench service serves with.
var certGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the self-signed certificate and key",
	Long: `Creates a self-signed TLS certificate and private key in the
configured certificate directory. Refuses to overwrite an existing
pair unless --force is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		certPath, keyPath, notAfter, err := certgen.Generate(certgen.Options{
			Dir:        cfg.Cert.Dir,
			CommonName: cfg.Cert.CommonName,
			Hosts:      cfg.Cert.Hosts,
			Days:       cfg.Cert.Days,
			Algorithm:  cfg.Cert.Algorithm,
			Force:      certForce,
		})
		if errors.Is(err, certgen.ErrExists) {
			existing, _ := certgen.Paths(cfg.Cert.Dir)
			fmt.Println(i18n.T("cert.exists", existing))
			os.Exit(1)
		}
		if err != nil {
			log.Fatal(i18n.T("cert.error_generate", err))
		}

		_ = db.LogAction("GENERATE_CERT", fmt.Sprintf("path: %s", certPath))
		fmt.Println(i18n.T("cert.generated", certPath, keyPath, notAfter.Format(time.RFC3339)))
		if info, err := certgen.Inspect(certPath); err == nil {
			fmt.Println(i18n.T("cert.fingerprint", info.Fingerprint))
		}
	},
}

var certCopy bool

// certShowCmd prints the certificate's identity data.
var certShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the certificate subject, SANs and validity",
	Run: func(cmd *cobra.Command, args []string) {
		certPath, _ := certgen.Paths(cfg.Cert.Dir)
		info, err := certgen.Inspect(certPath)
		if err != nil {
			log.Fatalf("Error reading certificate: %v", err)
		}

		sans := append([]string{}, info.DNSNames...)
		sans = append(sans, info.IPAddresses...)
		fmt.Println(i18n.T("cert.subject", info.Subject))
		fmt.Println(i18n.T("cert.sans", strings.Join(sans, ", ")))
		fmt.Println(i18n.T("cert.validity", info.NotBefore.Format(time.RFC3339), info.NotAfter.Format(time.RFC3339)))
		fmt.Println(i18n.T("cert.fingerprint", info.Fingerprint))

		if certCopy {
			pemData, err := os.ReadFile(certPath)
			if err == nil {
				err = clipboard.WriteAll(string(pemData))
			}
			if err != nil {
				fmt.Println(i18n.T("cert.copy_failed", err))
			} else {
				fmt.Println(i18n.T("cert.copied"))
			}
		}
	},
}

// certVerifyCmd checks the pair loads and has not expired.
var certVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the certificate and key match and are still valid",
	Run: func(cmd *cobra.Command, args []string) {
		certPath, keyPath := certgen.Paths(cfg.Cert.Dir)
		daysLeft, err := certgen.VerifyPair(certPath, keyPath)
		if err != nil {
			log.Fatalf("Certificate verification failed: %v", err)
		}
		fmt.Println(i18n.T("cert.pair_ok", daysLeft))
	},
}

func init() {
	certGenerateCmd.Flags().BoolVar(&certForce, "force", false, "replace an existing certificate pair")
	certShowCmd.Flags().BoolVar(&certCopy, "copy", false, "copy the certificate PEM to the clipboard")
}
