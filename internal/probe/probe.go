// Package probe makes a single connection attempt against a declared SMTP or
// IMAP endpoint and reports whether the transport handshake succeeds.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/idna"

	"github.com/shineum/providerdb-check/internal/provider"
)

// DefaultTimeout bounds a single probe when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// defaultLocalName is the name sent in EHLO after STARTTLS.
const defaultLocalName = "localhost"

// Config holds the configuration for a Prober.
type Config struct {
	// Timeout bounds dial, TLS handshake and protocol exchange of one probe.
	Timeout time.Duration

	// TLSConfig is the trust configuration for implicit TLS and STARTTLS.
	// ServerName is always overridden with the probed host. If nil, the
	// platform trust store is used.
	TLSConfig *tls.Config

	// LocalName is the host name announced in SMTP EHLO after STARTTLS.
	LocalName string
}

// Prober connects to endpoints one at a time.
type Prober struct {
	timeout   time.Duration
	tlsConfig *tls.Config
	localName string
	dialer    *net.Dialer
}

// New creates a Prober with the given configuration.
func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.LocalName == "" {
		cfg.LocalName = defaultLocalName
	}

	return &Prober{
		timeout:   cfg.Timeout,
		tlsConfig: cfg.TLSConfig,
		localName: cfg.LocalName,
		dialer:    &net.Dialer{Timeout: cfg.Timeout},
	}
}

// Probe connects to srv and performs the handshake for its protocol and
// socket mode. A nil return means the endpoint is reachable and, for SSL
// and STARTTLS, presented a certificate trusted for its host name.
// Failures are always of type *Error.
func (p *Prober) Probe(ctx context.Context, srv provider.ServerSpec) error {
	if err := validate(srv); err != nil {
		return &Error{Kind: KindUnsupported, Host: srv.Hostname, Port: srv.Port, Err: err}
	}

	host, err := asciiHost(srv.Hostname)
	if err != nil {
		return &Error{Kind: KindConnect, Host: srv.Hostname, Port: srv.Port, Err: fmt.Errorf("invalid hostname: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	switch srv.Type {
	case provider.TypeSMTP:
		err = p.probeSMTP(ctx, host, srv)
	case provider.TypeIMAP:
		err = p.probeIMAP(ctx, host, srv)
	}

	slog.Debug("probe finished",
		"type", srv.Type,
		"socket", srv.Socket,
		"addr", srv.Address(),
		"duration", time.Since(start),
		"ok", err == nil,
	)
	return err
}

// asciiHost returns the name to dial for hostname. IP literals pass through
// unchanged; non-ASCII labels are Punycode-encoded. Other characters, such
// as underscores, are left for the resolver to judge.
func asciiHost(hostname string) (string, error) {
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}
	return idna.Punycode.ToASCII(hostname)
}

func validate(srv provider.ServerSpec) error {
	switch srv.Type {
	case provider.TypeSMTP, provider.TypeIMAP:
	default:
		return fmt.Errorf("%w: type %q", ErrUnsupported, srv.Type)
	}
	switch srv.Socket {
	case provider.SocketSSL, provider.SocketSTARTTLS, provider.SocketPlain:
	default:
		return fmt.Errorf("%w: socket %q", ErrUnsupported, srv.Socket)
	}
	return nil
}

// dial opens a plaintext TCP connection whose deadline follows ctx.
func (p *Prober) dial(ctx context.Context, host string, port int) (net.Conn, error) {
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// clientTLS returns a copy of the trust configuration bound to host.
func (p *Prober) clientTLS(host string) *tls.Config {
	cfg := p.tlsConfig.Clone()
	cfg.ServerName = host
	return cfg
}

// handshake upgrades conn to implicit TLS. conn is closed on failure.
func (p *Prober) handshake(ctx context.Context, conn net.Conn, host string) (*tls.Conn, error) {
	tc := tls.Client(conn, p.clientTLS(host))
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tc, nil
}
