package http

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"
)

// Header encapsulates a header key value entry
type Header struct {
	Key   string
	Value string
}

type Headers []Header

func (rr Headers) MarshalZerologArray(a *zerolog.Array) {
	for _, u := range rr {
		a.Object(u)
	}
}

// Contains reports whether a header with the given key is present,
// compared case-insensitively
func (rr Headers) Contains(key string) bool {
	for _, h := range rr {
		if strings.EqualFold(h.Key, key) {
			return true
		}
	}
	return false
}

func (h Header) MarshalZerologObject(e *zerolog.Event) {
	e.Str("k", h.Key).
		Str("v", h.Value)
}

func (h *Header) AppendBytes(b []byte) []byte {
	b = append(b, h.Key...)
	b = append(b, ": "...)
	b = append(b, h.Value...)
	return b
}

// AppendWire appends the on-wire form "Key: Value\r\n"
func (h *Header) AppendWire(b []byte) []byte {
	b = h.AppendBytes(b)
	b = append(b, "\r\n"...)
	return b
}

func (h *Header) String() string {
	w := bytebufferpool.Get()
	ret := string(h.AppendBytes(w.B))
	bytebufferpool.Put(w)
	return ret
}

func (h *Header) reset() {
	h.Key = ""
	h.Value = ""
}

var (
	headerPool sync.Pool
)

// AcquireHeader retrieves a header from the shared header pool
func AcquireHeader() *Header {
	v := headerPool.Get()
	if v == nil {
		return &Header{}
	}
	return v.(*Header)
}

// ReleaseHeader releases a header into the shared header pool
func ReleaseHeader(h *Header) {
	h.reset()
	headerPool.Put(h)
}
