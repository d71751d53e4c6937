// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package certgen creates and inspects the self-signed TLS certificate the
// test bench serves with. Exactly one self-signed leaf is produced; there is
// no chain and no signing of foreign requests.
package certgen

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default file names inside the certificate directory.
const (
	CertFileName = "cert.pem"
	KeyFileName  = "key.pem"
)

// ErrExists is returned when generation would overwrite an existing pair.
var ErrExists = errors.New("certificate already exists")

// Options controls certificate generation.
type Options struct {
	// Dir is the directory the PEM files are written into.
	Dir string
	// CommonName is the certificate subject CN.
	CommonName string
	// Hosts are the subject alternative names; IP literals become IP SANs.
	Hosts []string
	// Days is the validity period starting now.
	Days int
	// Algorithm selects the key type: "ecdsa" (P-256), "rsa" (2048) or
	// "ed25519".
	Algorithm string
	// Force overwrites an existing pair.
	Force bool
}

// Info is the inspection result for a certificate file.
type Info struct {
	Subject     string
	DNSNames    []string
	IPAddresses []string
	NotBefore   time.Time
	NotAfter    time.Time
	Fingerprint string
	PublicAlg   string
}

// Paths returns the certificate and key file paths for a directory.
func Paths(dir string) (certPath, keyPath string) {
	return filepath.Join(dir, CertFileName), filepath.Join(dir, KeyFileName)
}

// Generate creates a fresh self-signed certificate and private key and
// writes them as PEM files into opts.Dir. The key file is written 0600.
// It returns the certificate path, the key path, and the expiry time.
func Generate(opts Options) (certPath, keyPath string, notAfter time.Time, err error) {
	if len(opts.Hosts) == 0 {
		return "", "", time.Time{}, errors.New("at least one host is required for the SAN list")
	}
	if opts.Days <= 0 {
		return "", "", time.Time{}, fmt.Errorf("validity must be positive, got %d days", opts.Days)
	}

	certPath, keyPath = Paths(opts.Dir)
	if !opts.Force {
		if _, statErr := os.Stat(certPath); statErr == nil {
			return "", "", time.Time{}, fmt.Errorf("%w at %s", ErrExists, certPath)
		}
	}

	priv, err := generateKey(opts.Algorithm)
	if err != nil {
		return "", "", time.Time{}, err
	}

	// 128-bit random serial, the conventional upper bound for leaf serials.
	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now()
	notAfter = notBefore.Add(time.Duration(opts.Days) * 24 * time.Hour)

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   opts.CommonName,
			Organization: []string{"Stagehand Test Bench"},
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              keyUsageFor(opts.Algorithm),
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range opts.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, publicKey(priv), priv)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to write key file: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		// Best effort: don't leave a key without its certificate.
		_ = os.Remove(keyPath)
		return "", "", time.Time{}, fmt.Errorf("failed to write certificate file: %w", err)
	}

	return certPath, keyPath, notAfter, nil
}

// Inspect parses the certificate file and reports its identity data.
func Inspect(certPath string) (*Info, error) {
	cert, err := readCertificate(certPath)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Subject:     cert.Subject.String(),
		DNSNames:    cert.DNSNames,
		NotBefore:   cert.NotBefore,
		NotAfter:    cert.NotAfter,
		Fingerprint: Fingerprint(cert.Raw),
		PublicAlg:   cert.PublicKeyAlgorithm.String(),
	}
	for _, ip := range cert.IPAddresses {
		info.IPAddresses = append(info.IPAddresses, ip.String())
	}
	return info, nil
}

// VerifyPair checks the certificate and key parse, belong together, and are
// not expired. It returns the number of whole days until expiry.
func VerifyPair(certPath, keyPath string) (daysLeft int, err error) {
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return 0, fmt.Errorf("certificate and key do not load as a pair: %w", err)
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return 0, fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) {
		return 0, fmt.Errorf("certificate is not valid until %s", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return 0, fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}

	return int(cert.NotAfter.Sub(now).Hours() / 24), nil
}

// Fingerprint returns the SHA-256 digest of the DER certificate in
// colon-separated uppercase hex, the way TLS tooling prints it.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// CertPool returns a pool containing only the generated certificate, for
// TLS probes that must trust nothing else.
func CertPool(certPath string) (*x509.CertPool, error) {
	pemData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file %s: %w", certPath, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("no certificates found in %s", certPath)
	}
	return pool, nil
}

func readCertificate(certPath string) (*x509.Certificate, error) {
	pemData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file %s: %w", certPath, err)
	}
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no CERTIFICATE block found in %s", certPath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func generateKey(algorithm string) (crypto.Signer, error) {
	switch strings.ToLower(algorithm) {
	case "", "ecdsa":
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case "rsa":
		return rsa.GenerateKey(rand.Reader, 2048)
	case "ed25519":
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	default:
		return nil, fmt.Errorf("unsupported key algorithm: %q", algorithm)
	}
}

func publicKey(priv crypto.Signer) crypto.PublicKey {
	return priv.Public()
}

// keyUsageFor returns the key usage bits for the chosen algorithm. RSA keys
// additionally allow key encipherment for older cipher suites.
func keyUsageFor(algorithm string) x509.KeyUsage {
	usage := x509.KeyUsageDigitalSignature
	if strings.ToLower(algorithm) == "rsa" {
		usage |= x509.KeyUsageKeyEncipherment
	}
	return usage
}
