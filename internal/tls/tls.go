// Package tls builds the trust configuration used to verify probed servers.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientConfig returns the tls.Config used to verify probed servers.
// With an empty caFile the platform trust store is used. Otherwise the
// PEM certificates in caFile are trusted in addition to the platform store.
func ClientConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if caFile == "" {
		return cfg, nil
	}

	if _, err := os.Stat(caFile); err != nil {
		return nil, fmt.Errorf("CA file not found: %w", err)
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in CA file %s", caFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
