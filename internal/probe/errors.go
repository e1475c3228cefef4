package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind classifies why a probe failed.
type Kind string

// Failure kinds reported in error lines.
const (
	KindConnect     Kind = "ConnectError"
	KindHandshake   Kind = "HandshakeError"
	KindTimeout     Kind = "TimeoutError"
	KindUnsupported Kind = "UnsupportedError"
)

func (k Kind) String() string { return string(k) }

// ErrUnsupported is wrapped by probe errors for server entries whose
// protocol or socket mode the prober does not know.
var ErrUnsupported = errors.New("unsupported server definition")

// Error is returned by Probe for any failed connection attempt.
type Error struct {
	Kind Kind
	Host string
	Port int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s:%d: %v", e.Kind, e.Host, e.Port, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a probe error, or "" when err is not one.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}

// newError wraps err with stage as its kind, unless err is a timeout.
func newError(stage Kind, host string, port int, err error) *Error {
	if isTimeout(err) {
		stage = KindTimeout
	}
	return &Error{Kind: stage, Host: host, Port: port, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
