package http

import (
	"bytes"
	"io"
	"strconv"
)

// recvBuffer is a read cursor over an append-only receive buffer. Each parse
// phase claims only the bytes it has semantically consumed; claimed bytes are
// reclaimed lazily by compaction on the next fill.
type recvBuffer struct {
	buf []byte
	off int
}

const recvBufferGrow = 4096

// fill performs one transport read, appending at least one byte unless the
// read fails. A read that returns bytes together with an error defers the
// error to the next call, mirroring io semantics.
func (b *recvBuffer) fill(r io.Reader) error {
	b.compact()
	if cap(b.buf)-len(b.buf) < recvBufferGrow {
		next := make([]byte, len(b.buf), cap(b.buf)+recvBufferGrow)
		copy(next, b.buf)
		b.buf = next
	}
	n, err := r.Read(b.buf[len(b.buf):cap(b.buf)])
	b.buf = b.buf[:len(b.buf)+n]
	if n > 0 {
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return err
}

func (b *recvBuffer) compact() {
	if b.off == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.off:])
	b.buf = b.buf[:n]
	b.off = 0
}

// unclaimed returns the number of bytes available to the current phase
func (b *recvBuffer) unclaimed() int {
	return len(b.buf) - b.off
}

// readLine claims and returns one line if a line terminator is buffered.
// The returned slice excludes the terminator; a trailing carriage return is
// stripped. The slice is only valid until the next fill.
func (b *recvBuffer) readLine() ([]byte, bool) {
	i := bytes.IndexByte(b.buf[b.off:], '\n')
	if i < 0 {
		return nil, false
	}
	line := b.buf[b.off : b.off+i]
	b.off += i + 1
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, true
}

// next claims and returns up to max unclaimed bytes. The slice is only valid
// until the next fill.
func (b *recvBuffer) next(max int) []byte {
	n := b.unclaimed()
	if n > max {
		n = max
	}
	out := b.buf[b.off : b.off+n]
	b.off += n
	return out
}

// parseStatusLine splits a status line into its version token, numeric
// status code and trailing message. ok is false when the version token does
// not begin with "HTTP/" or the status code is not numeric; no status code
// value is itself treated as an error.
func parseStatusLine(line []byte) (version string, code int, message string, ok bool) {
	sp := bytes.IndexByte(line, ' ')
	if sp < 0 {
		return "", 0, "", false
	}
	version = string(line[:sp])
	if !bytes.HasPrefix(line, []byte("HTTP/")) {
		return "", 0, "", false
	}

	rest := line[sp+1:]
	for len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	codeEnd := bytes.IndexByte(rest, ' ')
	codeTok := rest
	if codeEnd >= 0 {
		codeTok = rest[:codeEnd]
		message = string(bytes.TrimLeft(rest[codeEnd+1:], " "))
	}
	code, err := strconv.Atoi(string(codeTok))
	if err != nil {
		return "", 0, "", false
	}
	return version, code, message, true
}

// parseHeaderField splits a header line on the first colon. The value starts
// at the first non-space character after the colon. A line with no colon
// yields the whole line as the name and an empty value; malformed lines are
// tolerated, not rejected.
func parseHeaderField(line []byte) (name, value string) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return string(line), ""
	}
	name = string(line[:i])
	v := line[i+1:]
	for len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return name, string(v)
}
