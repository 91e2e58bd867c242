package loader

import (
	"context"
	"net/url"
	"strings"
	"time"

	neterrors "github.com/edgequill/netload/pkg/errors"
	"github.com/edgequill/netload/pkg/http"
	"github.com/edgequill/netload/pkg/log"
	"github.com/edgequill/netload/pkg/transport"
	"github.com/pkg/errors"
)

// ErrTooManyRedirects is wrapped into the CodeFailed error returned when a
// redirect chain exceeds the configured cap.
var ErrTooManyRedirects = errors.New("too many redirects")

// Request is a loader-level request: a URL plus the pieces forwarded to the
// engine. Sources are reused across redirect hops, so one-shot sources only
// contribute a body on the first hop.
type Request struct {
	URL     string
	Method  string
	Headers http.Headers
	Sources []http.UploadSource
}

type Options struct {
	mode               http.BodyMode
	maxRedirects       int
	timeout            time.Duration
	insecureSkipVerify bool
	forceAcceptCerts   bool
	verify             transport.VerifyFunc
	blacklistRedirects []string
}

type Option func(*Options)

// Mode selects buffered or streamed body delivery for every load performed
// by this loader. Decided once, before body bytes are available.
func Mode(m http.BodyMode) Option {
	return func(o *Options) {
		o.mode = m
	}
}

// MaxRedirects caps how many redirects are followed. 0 means the first
// redirect is returned to the caller unfollowed.
func MaxRedirects(n int) Option {
	return func(o *Options) {
		o.maxRedirects = n
	}
}

// Timeout bounds the resolve/connect/handshake phases of each hop
func Timeout(d time.Duration) Option {
	return func(o *Options) {
		o.timeout = d
	}
}

func InsecureSkipVerify(v bool) Option {
	return func(o *Options) {
		o.insecureSkipVerify = v
	}
}

func ForceAcceptCerts(v bool) Option {
	return func(o *Options) {
		o.forceAcceptCerts = v
	}
}

func VerifyCallback(f transport.VerifyFunc) Option {
	return func(o *Options) {
		o.verify = f
	}
}

// BlacklistRedirects stops redirect following when the target host prefix
// matches one of the provided strings. The unfollowed redirect is returned
// to the caller.
func BlacklistRedirects(hosts []string) Option {
	return func(o *Options) {
		o.blacklistRedirects = hosts
	}
}

// Loader owns the policy the engine deliberately does not: URL parsing,
// scheme to transport selection, buffering mode and redirect following. Each
// redirect hop gets a brand new client on a brand new connection.
type Loader struct {
	o Options
}

func New(opts ...Option) *Loader {
	o := Options{
		mode:         http.ModeStream,
		maxRedirects: 20,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader{o: o}
}

// Do loads the request's URL, following 301/302 redirects up to the
// configured cap. The returned Result carries either a response or, when
// following stopped early (cap reached or blacklisted target), the last
// unfollowed redirect. An unfollowable Location is CodeInvalidResponse; an
// unparseable request URL or unsupported scheme is CodeInvalidArgument.
func (l *Loader) Do(ctx context.Context, req *Request) (*http.Result, error) {
	current, err := url.Parse(req.URL)
	if err != nil || !current.IsAbs() {
		return nil, neterrors.Wrap(neterrors.CodeInvalidArgument, "parse url", errors.Errorf("invalid url %q", req.URL))
	}

	for redirects := 0; ; redirects++ {
		res, err := l.attempt(ctx, current, req)
		if err != nil {
			return nil, err
		}
		if res.Redirect == nil {
			return res, nil
		}

		log.Debug().Str("url", current.String()).Int("sc", res.Redirect.StatusCode).
			Str("location", res.Redirect.Location).Msg("following redirect")

		if redirects >= l.o.maxRedirects {
			return res, neterrors.Wrap(neterrors.CodeFailed, "follow redirect", ErrTooManyRedirects)
		}

		// an absent Location header is an empty string; there is nothing
		// to follow and relative targets are not resolved
		next, perr := url.Parse(res.Redirect.Location)
		if perr != nil || !next.IsAbs() {
			return nil, neterrors.Wrap(neterrors.CodeInvalidResponse, "parse redirect location",
				errors.Errorf("unusable redirect target %q", res.Redirect.Location))
		}

		if l.blacklisted(next.Host) {
			log.Debug().Str("host", next.Host).Msg("redirect target blacklisted, not following")
			return res, nil
		}
		current = next
	}
}

func (l *Loader) blacklisted(host string) bool {
	for _, v := range l.o.blacklistRedirects {
		if strings.HasPrefix(host, v) {
			return true
		}
	}
	return false
}

// attempt performs a single hop with a fresh transport and client
func (l *Loader) attempt(ctx context.Context, u *url.URL, req *Request) (*http.Result, error) {
	topts := []transport.Option{
		transport.WithTimeout(l.o.timeout),
		transport.WithInsecureSkipVerify(l.o.insecureSkipVerify),
		transport.WithForceAcceptCerts(l.o.forceAcceptCerts),
	}
	if l.o.verify != nil {
		topts = append(topts, transport.WithVerifyCallback(l.o.verify))
	}

	host := u.Hostname()
	port := u.Port()

	var conn transport.Conn
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
		conn = transport.NewTCP(topts...)
	case "https":
		if port == "" {
			port = "443"
		}
		conn = transport.NewTLS(host, topts...)
	default:
		return nil, neterrors.Wrap(neterrors.CodeInvalidArgument, "select transport",
			errors.Errorf("unsupported scheme %q", u.Scheme))
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	hreq := &http.Request{
		Method:  req.Method,
		Host:    host,
		Path:    path,
		Headers: req.Headers,
		Sources: req.Sources,
		URL:     u.String(),
	}

	client := http.NewClient(conn, hreq, http.WithMode(l.o.mode))
	return client.Do(ctx, host, port)
}
