package http

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		version string
		code    int
		message string
		ok      bool
	}{
		{"ok", "HTTP/1.1 200 OK", "HTTP/1.1", 200, "OK", true},
		{"no message", "HTTP/1.1 204", "HTTP/1.1", 204, "", true},
		{"multiword message", "HTTP/1.1 404 Not Found", "HTTP/1.1", 404, "Not Found", true},
		{"http 1.0", "HTTP/1.0 301 Moved Permanently", "HTTP/1.0", 301, "Moved Permanently", true},
		{"extra spaces before code", "HTTP/1.1  200 OK", "HTTP/1.1", 200, "OK", true},
		{"empty", "", "", 0, "", false},
		{"no spaces", "HTTP/1.1", "", 0, "", false},
		{"not http", "SPDY/1 200 OK", "", 0, "", false},
		{"garbage", "garbage in garbage out", "", 0, "", false},
		{"non numeric code", "HTTP/1.1 abc OK", "", 0, "", false},
		{"missing code", "HTTP/1.1  ", "", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, code, message, ok := parseStatusLine([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestParseHeaderField(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		key   string
		value string
	}{
		{"simple", "Content-Type: text/html", "Content-Type", "text/html"},
		{"no space after colon", "Content-Type:text/html", "Content-Type", "text/html"},
		{"many spaces after colon", "X-Foo:    bar", "X-Foo", "bar"},
		{"empty value", "X-Empty:", "X-Empty", ""},
		{"colon in value", "Location: http://example.com/", "Location", "http://example.com/"},
		{"no colon at all", "this is not a header", "this is not a header", ""},
		{"value keeps trailing spaces", "X-Foo: bar  ", "X-Foo", "bar  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, value := parseHeaderField([]byte(tt.line))
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestRecvBufferReadLine(t *testing.T) {
	var rb recvBuffer
	r := strings.NewReader("HTTP/1.1 200 OK\r\nHost: a\r\n\r\nbody")

	readLine := func() string {
		for {
			if line, ok := rb.readLine(); ok {
				return string(line)
			}
			assert.Nil(t, rb.fill(r))
		}
	}

	assert.Equal(t, "HTTP/1.1 200 OK", readLine())
	assert.Equal(t, "Host: a", readLine())
	assert.Equal(t, "", readLine())

	// what remains after the blank line is body payload
	for rb.unclaimed() < 4 {
		if err := rb.fill(r); err != nil {
			break
		}
	}
	assert.Equal(t, "body", string(rb.next(64)))
}

func TestRecvBufferOneBytePerRead(t *testing.T) {
	// a transport that fragments into single bytes must produce the same
	// lines as one that delivers everything at once
	var rb recvBuffer
	r := iotest.OneByteReader(strings.NewReader("a\r\nbc\nlast"))

	var lines []string
	for {
		line, ok := rb.readLine()
		if ok {
			lines = append(lines, string(line))
			continue
		}
		if err := rb.fill(r); err != nil {
			assert.Equal(t, io.EOF, err)
			break
		}
	}
	assert.Equal(t, []string{"a", "bc"}, lines)
	assert.Equal(t, "last", string(rb.next(64)))
}

func TestRecvBufferBareLFTerminatesLine(t *testing.T) {
	var rb recvBuffer
	r := strings.NewReader("no carriage return\nnext")
	assert.Nil(t, rb.fill(r))
	line, ok := rb.readLine()
	assert.True(t, ok)
	assert.Equal(t, "no carriage return", string(line))
}

func TestRecvBufferNext(t *testing.T) {
	var rb recvBuffer
	r := strings.NewReader("0123456789")
	assert.Nil(t, rb.fill(r))

	assert.Equal(t, "0123", string(rb.next(4)))
	assert.Equal(t, 6, rb.unclaimed())
	assert.Equal(t, "456789", string(rb.next(100)))
	assert.Equal(t, 0, rb.unclaimed())
	assert.Equal(t, "", string(rb.next(100)))
}

func TestRecvBufferFillEOF(t *testing.T) {
	var rb recvBuffer
	assert.Equal(t, io.EOF, rb.fill(strings.NewReader("")))
}

func TestRecvBufferCompaction(t *testing.T) {
	// claimed bytes must not leak back into the unclaimed view across fills
	var rb recvBuffer
	first := strings.NewReader(strings.Repeat("x", 100))
	assert.Nil(t, rb.fill(first))
	rb.next(100)
	assert.Equal(t, 0, rb.unclaimed())

	second := strings.NewReader("fresh")
	assert.Nil(t, rb.fill(second))
	assert.Equal(t, "fresh", string(rb.next(64)))
}
