package probe

import (
	"context"
	"fmt"
	"net"
	"net/textproto"

	"github.com/emersion/go-smtp"

	"github.com/shineum/providerdb-check/internal/provider"
)

// probeSMTP runs the SMTP exchange for srv:
//
//	SSL:      TLS handshake, greeting
//	STARTTLS: greeting, EHLO, STARTTLS, EHLO
//	PLAIN:    greeting
func (p *Prober) probeSMTP(ctx context.Context, host string, srv provider.ServerSpec) error {
	conn, err := p.dial(ctx, host, srv.Port)
	if err != nil {
		return newError(KindConnect, srv.Hostname, srv.Port, err)
	}

	switch srv.Socket {
	case provider.SocketSSL:
		tc, err := p.handshake(ctx, conn, host)
		if err != nil {
			return newError(KindHandshake, srv.Hostname, srv.Port, err)
		}
		return greetSMTP(tc, srv)
	case provider.SocketPlain:
		return greetSMTP(conn, srv)
	}
	return p.startTLSSMTP(ctx, conn, host, srv)
}

// greetSMTP waits for the 220 greeting and ends the session with QUIT.
// The connection deadline set at dial time bounds the read.
func greetSMTP(conn net.Conn, srv provider.ServerSpec) error {
	tp := textproto.NewConn(conn)
	defer tp.Close()

	if _, _, err := tp.ReadResponse(220); err != nil {
		return newError(KindHandshake, srv.Hostname, srv.Port, err)
	}
	_ = tp.PrintfLine("QUIT")
	return nil
}

// startTLSSMTP upgrades the session and introduces itself again over TLS.
func (p *Prober) startTLSSMTP(ctx context.Context, conn net.Conn, host string, srv provider.ServerSpec) error {
	// The client resets connection deadlines around each command, so the
	// probe deadline is enforced by closing the connection.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClientStartTLS(conn, p.clientTLS(host))
	if err != nil {
		return newError(KindHandshake, srv.Hostname, srv.Port, withContext(ctx, err))
	}
	defer c.Close()
	c.CommandTimeout = p.timeout

	if err := c.Hello(p.localName); err != nil {
		return newError(KindHandshake, srv.Hostname, srv.Port, withContext(ctx, err))
	}

	_ = c.Quit()
	return nil
}

// withContext attaches the context error to err once ctx is done, so a
// connection closed by the deadline reports as a timeout.
func withContext(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}
