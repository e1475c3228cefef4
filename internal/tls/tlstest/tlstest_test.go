package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"testing"
)

func TestCertificate_DefaultHosts(t *testing.T) {
	t.Parallel()

	cert, err := Certificate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leaf := cert.Leaf
	if leaf.Subject.CommonName != "localhost" {
		t.Errorf("CN: got %q, want %q", leaf.Subject.CommonName, "localhost")
	}
	if len(leaf.DNSNames) != 1 || leaf.DNSNames[0] != "localhost" {
		t.Errorf("DNS SANs: got %v, want [localhost]", leaf.DNSNames)
	}

	for _, want := range []string{"127.0.0.1", "::1"} {
		found := false
		for _, ip := range leaf.IPAddresses {
			if ip.Equal(net.ParseIP(want)) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("IP SANs: %v does not contain %s", leaf.IPAddresses, want)
		}
	}

	ecKey, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		t.Fatal("public key is not ECDSA")
	}
	if ecKey.Curve != elliptic.P256() {
		t.Errorf("curve: got %v, want P-256", ecKey.Curve.Params().Name)
	}
}

func TestCertificate_Hosts(t *testing.T) {
	t.Parallel()

	cert, err := Certificate("mail.example.test", "192.0.2.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cert.Leaf.Subject.CommonName != "mail.example.test" {
		t.Errorf("CN: got %q", cert.Leaf.Subject.CommonName)
	}
	if len(cert.Leaf.DNSNames) != 1 || len(cert.Leaf.IPAddresses) != 1 {
		t.Errorf("SANs: got DNS %v, IP %v", cert.Leaf.DNSNames, cert.Leaf.IPAddresses)
	}
}

func TestClientConfig_VerifiesOnlyCert(t *testing.T) {
	t.Parallel()

	cert, err := Certificate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other, err := Certificate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roots := ClientConfig(cert).RootCAs
	if _, err := cert.Leaf.Verify(x509.VerifyOptions{Roots: roots, DNSName: "localhost"}); err != nil {
		t.Errorf("certificate does not verify against its own pool: %v", err)
	}
	if _, err := other.Leaf.Verify(x509.VerifyOptions{Roots: roots, DNSName: "localhost"}); err == nil {
		t.Error("unrelated certificate verified against the pool")
	}
}

func TestServerConfig(t *testing.T) {
	t.Parallel()

	cert, err := Certificate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := ServerConfig(cert)
	if len(cfg.Certificates) != 1 {
		t.Errorf("Certificates: got %d, want 1", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion: got %d, want TLS 1.2 (%d)", cfg.MinVersion, tls.VersionTLS12)
	}
}

func TestEncodePEM(t *testing.T) {
	t.Parallel()

	cert, err := Certificate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block, rest := pem.Decode(EncodePEM(cert))
	if block == nil || block.Type != "CERTIFICATE" || len(rest) != 0 {
		t.Fatalf("unexpected PEM output: %v, rest %q", block, rest)
	}
	if string(block.Bytes) != string(cert.Certificate[0]) {
		t.Error("PEM block does not hold the certificate")
	}
}
