package fetch

import (
	"strings"
	"time"

	"github.com/edgequill/netload/pkg/http"
	"github.com/edgequill/netload/pkg/transport"
)

type FetchOptions struct {
	Method       string
	Headers      http.Headers
	Mode         http.BodyMode
	MaxRedirects int
	Timeout      time.Duration
	MaxParallel  int
	Slots        int

	InsecureSkipVerify bool
	ForceAcceptCerts   bool
	Verify             transport.VerifyFunc
	BlacklistDomains   []string

	// OutputPath receives the body when exactly one URL is fetched.
	// "-" means stdout; empty discards the body after counting it.
	OutputPath   string
	ShowProgress bool
	Body         []byte
}

type FetchOption func(*FetchOptions)

func NewDefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		Method:       "GET",
		Mode:         http.ModeStream,
		MaxRedirects: 20,
		Timeout:      3 * time.Second,
		MaxParallel:  10,
	}
}

func Method(m string) FetchOption {
	return func(o *FetchOptions) {
		if m != "" {
			o.Method = m
		}
	}
}

// AddHeaders parses "Key: Value" strings into the request header list
func AddHeaders(headers []string) FetchOption {
	return func(o *FetchOptions) {
		for _, v := range headers {
			parts := strings.SplitN(v, ":", 2)
			h := http.Header{Key: strings.TrimSpace(parts[0])}
			if len(parts) == 2 {
				h.Value = strings.TrimSpace(parts[1])
			}
			o.Headers = append(o.Headers, h)
		}
	}
}

func Mode(m http.BodyMode) FetchOption {
	return func(o *FetchOptions) {
		o.Mode = m
	}
}

func MaxRedirects(n int) FetchOption {
	return func(o *FetchOptions) {
		o.MaxRedirects = n
	}
}

func Timeout(d time.Duration) FetchOption {
	return func(o *FetchOptions) {
		o.Timeout = d
	}
}

func MaxParallel(n int) FetchOption {
	return func(o *FetchOptions) {
		if n > 0 {
			o.MaxParallel = n
		}
	}
}

func Slots(n int) FetchOption {
	return func(o *FetchOptions) {
		o.Slots = n
	}
}

func InsecureSkipVerify(v bool) FetchOption {
	return func(o *FetchOptions) {
		o.InsecureSkipVerify = v
	}
}

func ForceAcceptCerts(v bool) FetchOption {
	return func(o *FetchOptions) {
		o.ForceAcceptCerts = v
	}
}

func BlacklistDomains(hosts []string) FetchOption {
	return func(o *FetchOptions) {
		o.BlacklistDomains = hosts
	}
}

func OutputPath(p string) FetchOption {
	return func(o *FetchOptions) {
		o.OutputPath = p
	}
}

func ShowProgress(v bool) FetchOption {
	return func(o *FetchOptions) {
		o.ShowProgress = v
	}
}

// Body attaches an in-memory request body
func Body(b []byte) FetchOption {
	return func(o *FetchOptions) {
		o.Body = b
	}
}
