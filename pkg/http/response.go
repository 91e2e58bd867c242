package http

import (
	"io"

	"github.com/rs/zerolog"
)

// Body is the delivered response body: exactly one of Buffer or Stream is
// set, decided by the client's body mode before any body bytes arrive.
type Body struct {
	// Buffer holds the fully materialized body, sized exactly to the byte
	// count received before EOF. Buffered mode only.
	Buffer []byte
	// Stream is the consumer half of the live body stream. It yields body
	// bytes as they arrive from the network and reaches EOF when the
	// connection does. Closing it early is a clean cancellation. Streamed
	// mode only.
	Stream io.ReadCloser
}

// Response is handed to the loader exactly once per non-redirect attempt.
type Response struct {
	StatusCode int
	StatusLine string
	// URL is the originating URL for this attempt
	URL string
	// Headers preserves wire order and duplicates
	Headers []*Header
	Body    *Body
}

// AddHeader appends a parsed header, preserving order and duplicates
func (r *Response) AddHeader(k, v string) {
	h := AcquireHeader()
	h.Key = k
	h.Value = v
	r.Headers = append(r.Headers, h)
}

// Header returns the value of the first header with the given name, matched
// exactly, or "" when absent
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if h.Key == name {
			return h.Value
		}
	}
	return ""
}

// Release returns pooled headers. The response must not be used afterwards.
func (r *Response) Release() {
	for _, h := range r.Headers {
		ReleaseHeader(h)
	}
	r.Headers = r.Headers[:0]
}

func (r Response) MarshalZerologObject(e *zerolog.Event) {
	e.Str("url", r.URL).
		Int("sc", r.StatusCode).
		Str("status", r.StatusLine)
}

// Redirect is the terminal outcome of a 301/302 attempt. No Response is
// constructed in that case; the loader decides whether and how to follow.
// Location may be empty when the header was absent.
type Redirect struct {
	StatusCode int
	Location   string
}

// Result is the single success outcome of a request attempt: either a full
// response or a detected redirect, never both.
type Result struct {
	Response *Response
	Redirect *Redirect
}
