package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"

	"github.com/edgequill/netload/pkg/log"
	"github.com/pkg/errors"
)

// TLS wraps the plain binding with a TLS session. Certificate verification
// runs through the verify hook: each certificate's subject name is presented
// together with the chain's pre-verification result, and any rejection fails
// the handshake.
type TLS struct {
	tcp        *TCP
	o          options
	serverName string
	rootCAs    *x509.CertPool // nil means the system pool
	tconn      *tls.Conn
}

func NewTLS(serverName string, opts ...Option) *TLS {
	return &TLS{
		tcp:        NewTCP(opts...),
		o:          buildOptions(opts...),
		serverName: serverName,
	}
}

// SetRootCAs overrides the trust anchors used for pre-verification. Intended
// for tests; production deployments use the system pool.
func (t *TLS) SetRootCAs(pool *x509.CertPool) {
	t.rootCAs = pool
}

func (t *TLS) Resolve(ctx context.Context, host, port string) error {
	return t.tcp.Resolve(ctx, host, port)
}

func (t *TLS) Connect(ctx context.Context) error {
	return t.tcp.Connect(ctx)
}

func (t *TLS) Handshake(ctx context.Context) error {
	cfg := &tls.Config{
		ServerName: t.serverName,
		// verification happens in verifyPeer so the hook can see the
		// pre-verification result
		InsecureSkipVerify: true,
	}
	if !t.o.insecureSkipVerify {
		cfg.VerifyPeerCertificate = t.verifyPeer
	}
	t.tconn = tls.Client(t.tcp.conn, cfg)
	if err := t.tconn.HandshakeContext(ctx); err != nil {
		return errors.Wrap(err, "tls handshake")
	}
	return nil
}

// verifyPeer reproduces the platform verification and feeds every
// certificate in the chain through the verify hook.
func (t *TLS) verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		c, err := x509.ParseCertificate(raw)
		if err != nil {
			return errors.Wrap(err, "parsing peer certificate")
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return errors.New("no peer certificates")
	}

	opts := x509.VerifyOptions{
		DNSName:       t.serverName,
		Roots:         t.rootCAs,
		Intermediates: x509.NewCertPool(),
	}
	for _, c := range certs[1:] {
		opts.Intermediates.AddCert(c)
	}
	_, verr := certs[0].Verify(opts)
	preverified := verr == nil
	if t.o.forceAcceptCerts {
		preverified = true
	}

	for _, c := range certs {
		subject := c.Subject.String()
		log.Trace().Str("subject", subject).Bool("preverified", preverified).Msg("verifying certificate")
		if !t.o.verify(preverified, subject) {
			if verr != nil {
				return errors.Wrap(verr, "certificate rejected")
			}
			return errors.Errorf("certificate rejected: %s", subject)
		}
	}
	return nil
}

func (t *TLS) Read(p []byte) (int, error) {
	return t.tconn.Read(p)
}

func (t *TLS) Write(p []byte) (int, error) {
	return t.tconn.Write(p)
}

func (t *TLS) Close() error {
	if t.tconn != nil {
		return t.tconn.Close()
	}
	return t.tcp.Close()
}

var _ Conn = (*TCP)(nil)
var _ Conn = (*TLS)(nil)
