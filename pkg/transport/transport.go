package transport

import (
	"context"
	"time"
)

// Conn is the connection capability consumed by the client engine. The
// lifecycle is Resolve, Connect, Handshake, then Read/Write until Close.
// Handshake is a no-op on plain TCP; the TLS variant performs the TLS
// handshake and runs the certificate verify hook.
//
// Read and Write follow io semantics with one relaxation: Write may report
// a partial transfer with a nil error, leaving the caller to resubmit the
// remainder. The real socket implementations never do this, but the engine's
// write pump must not assume it.
type Conn interface {
	Resolve(ctx context.Context, host, port string) error
	Connect(ctx context.Context) error
	Handshake(ctx context.Context) error
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// VerifyFunc is invoked once per certificate during the TLS handshake with
// the platform's pre-verification result and the certificate's subject name.
// Returning false rejects the certificate and fails the handshake.
type VerifyFunc func(preverified bool, subjectName string) bool

type options struct {
	timeout            time.Duration
	verify             VerifyFunc
	insecureSkipVerify bool
	forceAcceptCerts   bool
}

type Option func(*options)

// WithTimeout bounds the dial (and TLS handshake) phases. Zero means no
// timeout; read/write deadlines are not this package's concern.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithVerifyCallback installs the per-certificate verify hook. The default
// callback propagates the pre-verification result unchanged.
func WithVerifyCallback(f VerifyFunc) Option {
	return func(o *options) {
		o.verify = f
	}
}

// WithInsecureSkipVerify disables certificate verification entirely. The
// verify hook is not invoked when this is set. Deployment escape hatch, not
// default behaviour.
func WithInsecureSkipVerify(v bool) Option {
	return func(o *options) {
		o.insecureSkipVerify = v
	}
}

// WithForceAcceptCerts forces the pre-verification result passed to the
// verify hook to true, accepting untrusted chains unless a custom hook
// rejects them. Deployment escape hatch, not default behaviour.
func WithForceAcceptCerts(v bool) Option {
	return func(o *options) {
		o.forceAcceptCerts = v
	}
}

func buildOptions(opts ...Option) options {
	o := options{
		verify: func(preverified bool, subjectName string) bool { return preverified },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
