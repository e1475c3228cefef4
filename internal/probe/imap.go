package probe

import (
	"context"

	"github.com/emersion/go-imap/client"

	"github.com/shineum/providerdb-check/internal/provider"
)

// probeIMAP waits for the server greeting and, for STARTTLS, upgrades the
// connection. SSL endpoints complete the TLS handshake before the greeting.
func (p *Prober) probeIMAP(ctx context.Context, host string, srv provider.ServerSpec) error {
	conn, err := p.dial(ctx, host, srv.Port)
	if err != nil {
		return newError(KindConnect, srv.Hostname, srv.Port, err)
	}

	if srv.Socket == provider.SocketSSL {
		tc, err := p.handshake(ctx, conn, host)
		if err != nil {
			return newError(KindHandshake, srv.Hostname, srv.Port, err)
		}
		conn = tc
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return newError(KindHandshake, srv.Hostname, srv.Port, err)
	}
	c.Timeout = p.timeout
	defer c.Terminate()

	if srv.Socket == provider.SocketSTARTTLS {
		if err := c.StartTLS(p.clientTLS(host)); err != nil {
			return newError(KindHandshake, srv.Hostname, srv.Port, err)
		}
	}

	_ = c.Logout()
	return nil
}
