package transport

import (
	"context"
	"net"

	"github.com/edgequill/netload/pkg/log"
	"github.com/pkg/errors"
)

// TCP is the plain socket binding. One instance serves exactly one
// connection; it is not reusable after Close.
type TCP struct {
	dialer net.Dialer
	addrs  []string
	conn   net.Conn
}

func NewTCP(opts ...Option) *TCP {
	o := buildOptions(opts...)
	return &TCP{dialer: net.Dialer{Timeout: o.timeout}}
}

// Resolve looks up host and records the candidate endpoints for Connect,
// preserving resolver order.
func (t *TCP) Resolve(ctx context.Context, host, port string) error {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return errors.Wrap(err, "looking up host")
	}
	if len(ips) == 0 {
		return errors.Errorf("no addresses for %s", host)
	}
	t.addrs = t.addrs[:0]
	for _, ip := range ips {
		t.addrs = append(t.addrs, net.JoinHostPort(ip.String(), port))
	}
	return nil
}

// Connect attempts the resolved endpoints in order and keeps the first that
// answers.
func (t *TCP) Connect(ctx context.Context) error {
	if len(t.addrs) == 0 {
		return errors.New("connect before resolve")
	}
	var lastErr error
	for _, addr := range t.addrs {
		conn, err := t.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			t.conn = conn
			return nil
		}
		log.Trace().Str("addr", addr).Err(err).Msg("endpoint failed")
		lastErr = err
	}
	return errors.Wrap(lastErr, "dialing resolved endpoints")
}

// Handshake is a no-op for plain sockets.
func (t *TCP) Handshake(ctx context.Context) error {
	return nil
}

func (t *TCP) Read(p []byte) (int, error) {
	return t.conn.Read(p)
}

func (t *TCP) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
