package http

import (
	"strconv"

	neterrors "github.com/edgequill/netload/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var allowedMethods = map[string]struct{}{
	"GET":     {},
	"HEAD":    {},
	"POST":    {},
	"PUT":     {},
	"DELETE":  {},
	"TRACE":   {},
	"CONNECT": {},
	"PATCH":   {},
}

// IsMethodAllowed reports whether method is in the fixed allowed set. The
// comparison is exact; lowercase spellings are not allowed.
func IsMethodAllowed(method string) bool {
	_, ok := allowedMethods[method]
	return ok
}

// Request carries everything needed to serialize one HTTP/1.1 request.
// Headers are written to the wire verbatim, in order; keys are expected to
// be unique.
type Request struct {
	Method string
	Host   string // value of the Host header
	Path   string
	// Headers are the caller supplied headers. An Accept header here (any
	// case) suppresses the default Accept: */*
	Headers Headers
	// Sources supply the request body, drained fully in order
	Sources []UploadSource
	// URL is the originating URL, echoed on the response object
	URL string
}

// Build serializes the request into a header buffer and a body buffer taken
// from bytebufferpool. On success the caller owns both buffers and must
// return them to the pool once transmission finishes. Build performs no
// network I/O; a disallowed method fails with INVALID_ARGUMENT before any
// source is drained, and a source failure aborts the build with that
// source's error unchanged.
//
// Content-Length is computed from the final body size, after every source
// has been drained, and is only written when the body is non-empty.
func (r *Request) Build() (header, body *bytebufferpool.ByteBuffer, err error) {
	if !IsMethodAllowed(r.Method) {
		return nil, nil, neterrors.New(neterrors.CodeInvalidArgument, "build request", "method "+r.Method+" is not allowed")
	}

	header = bytebufferpool.Get()
	body = bytebufferpool.Get()

	header.B = append(header.B, r.Method...)
	header.B = append(header.B, ' ')
	header.B = append(header.B, r.Path...)
	header.B = append(header.B, " HTTP/1.1\r\n"...)
	header.B = append(header.B, "Host: "...)
	header.B = append(header.B, r.Host...)
	header.B = append(header.B, "\r\n"...)
	header.B = append(header.B, "Connection: close\r\n"...)

	for i := range r.Headers {
		header.B = r.Headers[i].AppendWire(header.B)
	}
	if !r.Headers.Contains("Accept") {
		header.B = append(header.B, "Accept: */*\r\n"...)
	}

	for _, src := range r.Sources {
		if serr := src.ReadAll(body); serr != nil {
			bytebufferpool.Put(header)
			bytebufferpool.Put(body)
			return nil, nil, serr
		}
	}

	if body.Len() > 0 {
		header.B = append(header.B, "Content-Length: "...)
		header.B = append(header.B, strconv.Itoa(body.Len())...)
		header.B = append(header.B, "\r\n"...)
	}
	header.B = append(header.B, "\r\n"...)

	return header, body, nil
}
