package http

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net"
	"strings"
	"testing"
	"time"

	neterrors "github.com/edgequill/netload/pkg/errors"
	"github.com/edgequill/netload/pkg/transport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// fakeConn is a scripted transport: each lifecycle phase can be made to
// fail, and reads serve a canned response followed by a configurable
// terminal error.
type fakeConn struct {
	resolveErr   error
	connectErr   error
	handshakeErr error
	writeErr     error

	response *bytes.Reader
	// readErr terminates the response instead of io.EOF when set
	readErr error

	wrote  bytes.Buffer
	closed int
}

func newFakeConn(response string) *fakeConn {
	return &fakeConn{response: bytes.NewReader([]byte(response))}
}

func (f *fakeConn) Resolve(ctx context.Context, host, port string) error { return f.resolveErr }
func (f *fakeConn) Connect(ctx context.Context) error                    { return f.connectErr }
func (f *fakeConn) Handshake(ctx context.Context) error                  { return f.handshakeErr }

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.response != nil && f.response.Len() > 0 {
		return f.response.Read(p)
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	return 0, io.EOF
}

func (f *fakeConn) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.wrote.Write(p)
}

func (f *fakeConn) Close() error {
	f.closed++
	return nil
}

func testRequest() *Request {
	return &Request{Method: "GET", Host: "example.com", Path: "/", URL: "http://example.com/"}
}

func TestClientPhaseErrorCodes(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		conn *fakeConn
		code neterrors.Code
	}{
		{"resolve", &fakeConn{resolveErr: boom}, neterrors.CodeNameNotResolved},
		{"connect", &fakeConn{connectErr: boom}, neterrors.CodeConnectionFailed},
		{"handshake", &fakeConn{handshakeErr: boom}, neterrors.CodeHandshakeNotCompleted},
		{"write", &fakeConn{writeErr: boom}, neterrors.CodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewClient(tt.conn, testRequest()).Do(context.Background(), "example.com", "80")
			assert.Nil(t, res)
			assert.Equal(t, tt.code, neterrors.CodeOf(err))
			assert.Equal(t, 1, tt.conn.closed, "connection must be closed exactly once on failure")
		})
	}
}

func TestClientInvalidStatusLine(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not http", "garbage in garbage out\r\n\r\n"},
		{"non numeric code", "HTTP/1.1 abc OK\r\n\r\n"},
		{"immediate eof", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn(tt.response)
			res, err := NewClient(conn, testRequest()).Do(context.Background(), "example.com", "80")
			assert.Nil(t, res)
			assert.NotNil(t, err)
			if tt.response == "" {
				assert.Equal(t, neterrors.CodeFailed, neterrors.CodeOf(err))
			} else {
				assert.Equal(t, neterrors.CodeInvalidResponse, neterrors.CodeOf(err))
			}
		})
	}
}

func TestClientBufferedBody(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\nX-One: a\r\nX-One: b\r\n\r\nhello body")
	res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)
	assert.Nil(t, res.Redirect)

	resp := res.Response
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "HTTP/1.1 200 OK", resp.StatusLine)
	assert.Equal(t, "http://example.com/", resp.URL)
	assert.Equal(t, "hello body", string(resp.Body.Buffer))
	assert.Nil(t, resp.Body.Stream)
	assert.Equal(t, 1, conn.closed)

	// duplicates survive in wire order; lookup returns the first
	assert.Len(t, resp.Headers, 2)
	assert.Equal(t, "a", resp.Header("X-One"))
	resp.Release()
}

func TestClientBufferedEmptyBody(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 204 No Content\r\n\r\n")
	res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)
	assert.Equal(t, 204, res.Response.StatusCode)
	assert.Equal(t, 0, len(res.Response.Body.Buffer))
}

func TestClientErrorStatusIsDelivered(t *testing.T) {
	for _, response := range []string{
		"HTTP/1.1 404 Not Found\r\n\r\nmissing",
		"HTTP/1.1 500 Internal Server Error\r\n\r\noops",
	} {
		conn := newFakeConn(response)
		res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
		assert.Nil(t, err)
		assert.NotNil(t, res.Response)
		assert.Nil(t, res.Redirect)
	}
}

func TestClientRedirectDetected(t *testing.T) {
	tests := []struct {
		name     string
		response string
		code     int
		location string
	}{
		{"301", "HTTP/1.1 301 Moved Permanently\r\nLocation: http://a/\r\n\r\nignored", 301, "http://a/"},
		{"302", "HTTP/1.1 302 Found\r\nLocation: http://b/\r\n\r\n", 302, "http://b/"},
		{"last location wins", "HTTP/1.1 302 Found\r\nLocation: http://first/\r\nLocation: http://second/\r\n\r\n", 302, "http://second/"},
		{"missing location", "HTTP/1.1 301 Moved Permanently\r\n\r\n", 301, ""},
		{"lowercase location not matched", "HTTP/1.1 302 Found\r\nlocation: http://a/\r\n\r\n", 302, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn(tt.response)
			res, err := NewClient(conn, testRequest()).Do(context.Background(), "example.com", "80")
			assert.Nil(t, err)
			assert.Nil(t, res.Response, "no response object is built for a redirect")
			assert.Equal(t, tt.code, res.Redirect.StatusCode)
			assert.Equal(t, tt.location, res.Redirect.Location)
			assert.Equal(t, 1, conn.closed)
		})
	}
}

func TestClientMalformedHeaderTolerated(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\nthis line has no colon\r\nX-Ok: yes\r\n\r\n")
	res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)
	assert.Equal(t, "", res.Response.Header("this line has no colon"))
	assert.Equal(t, "yes", res.Response.Header("X-Ok"))
}

func TestClientTLSTruncationIsBenign(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\n\r\npartial")
	conn.readErr = io.ErrUnexpectedEOF
	res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)
	assert.Equal(t, "partial", string(res.Response.Body.Buffer))
}

func TestClientBufferedReadErrorFails(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\n\r\npartial")
	conn.readErr = errors.New("reset by peer")
	res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
	assert.Nil(t, res)
	assert.Equal(t, neterrors.CodeFailed, neterrors.CodeOf(err))
}

func TestClientStreamedBody(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nstreamed bytes")
	res, err := NewClient(conn, testRequest()).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)

	resp := res.Response
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotNil(t, resp.Body.Stream)
	assert.Nil(t, resp.Body.Buffer)

	got, rerr := ioutil.ReadAll(resp.Body.Stream)
	assert.Nil(t, rerr)
	assert.Equal(t, "streamed bytes", string(got))
	assert.Nil(t, resp.Body.Stream.Close())
}

func TestClientStreamedReadErrorEndsBodySilently(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\n\r\nhead of body")
	conn.readErr = errors.New("reset by peer")
	res, err := NewClient(conn, testRequest()).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)

	// the transport failure is not surfaced; the stream just ends
	got, rerr := ioutil.ReadAll(res.Response.Body.Stream)
	assert.Nil(t, rerr)
	assert.Equal(t, "head of body", string(got))
}

func TestClientStreamedEarlyClose(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\n\r\n" + strings.Repeat("x", 1<<20))
	res, err := NewClient(conn, testRequest()).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)

	buf := make([]byte, 10)
	_, rerr := io.ReadFull(res.Response.Body.Stream, buf)
	assert.Nil(t, rerr)
	assert.Nil(t, res.Response.Body.Stream.Close())

	// the stream pump owns the close; give it a beat to observe the pipe
	deadline := time.Now().Add(2 * time.Second)
	for conn.closed == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, conn.closed)
}

func TestClientStreamedSlowConsumer(t *testing.T) {
	payload := strings.Repeat("abcdefgh", 512)
	conn := newFakeConn("HTTP/1.1 200 OK\r\n\r\n" + payload)
	res, err := NewClient(conn, testRequest()).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)

	// drain one byte at a time so the pump repeatedly suspends on the pipe
	var out bytes.Buffer
	one := make([]byte, 1)
	for {
		n, rerr := res.Response.Body.Stream.Read(one)
		out.Write(one[:n])
		if rerr == io.EOF {
			break
		}
		assert.Nil(t, rerr)
	}
	assert.Equal(t, payload, out.String())
}

func TestClientInvalidMethodNoIO(t *testing.T) {
	conn := newFakeConn("")
	req := testRequest()
	req.Method = "bogus"
	res, err := NewClient(conn, req).Do(context.Background(), "example.com", "80")
	assert.Nil(t, res)
	assert.Equal(t, neterrors.CodeInvalidArgument, neterrors.CodeOf(err))
	assert.Equal(t, 0, conn.closed, "no connection activity for an unbuildable request")
	assert.Equal(t, 0, conn.wrote.Len())
}

func TestClientWiresRequestToConn(t *testing.T) {
	conn := newFakeConn("HTTP/1.1 200 OK\r\n\r\n")
	req := &Request{
		Method:  "POST",
		Host:    "example.com",
		Path:    "/submit",
		Headers: Headers{{"X-Token", "abc"}},
		Sources: []UploadSource{NewBytesSource([]byte("a=b"))},
		URL:     "http://example.com/submit",
	}
	_, err := NewClient(conn, req, WithMode(ModeBuffer)).Do(context.Background(), "example.com", "80")
	assert.Nil(t, err)

	wire := conn.wrote.String()
	assert.True(t, strings.HasPrefix(wire, "POST /submit HTTP/1.1\r\n"))
	assert.Contains(t, wire, "X-Token: abc\r\n")
	assert.Contains(t, wire, "Content-Length: 3\r\n")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\na=b"))
}

// rawServer accepts one connection, reads until the end of the request
// headers and writes the canned response in fragments.
func rawServer(t *testing.T, response string, fragment int) (host, port string, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.Nil(t, err)
	t.Cleanup(func() { ln.Close() })

	done = make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		var req []byte
		for !bytes.Contains(req, []byte("\r\n\r\n")) {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			req = append(req, buf[:n]...)
		}

		out := []byte(response)
		for len(out) > 0 {
			n := fragment
			if n <= 0 || n > len(out) {
				n = len(out)
			}
			if _, err := conn.Write(out[:n]); err != nil {
				return
			}
			out = out[n:]
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	assert.Nil(t, err)
	return host, port, done
}

func TestClientAgainstRealSocket(t *testing.T) {
	for _, fragment := range []int{0, 1} {
		host, port, done := rawServer(t, "HTTP/1.1 200 OK\r\nX-Real: socket\r\n\r\nover the wire", fragment)

		conn := transport.NewTCP()
		res, err := NewClient(conn, testRequest(), WithMode(ModeBuffer)).Do(context.Background(), host, port)
		assert.Nil(t, err)
		assert.Equal(t, 200, res.Response.StatusCode)
		assert.Equal(t, "socket", res.Response.Header("X-Real"))
		assert.Equal(t, "over the wire", string(res.Response.Body.Buffer))
		<-done
	}
}

func TestClientStreamedMatchesBufferedOnRealSocket(t *testing.T) {
	response := "HTTP/1.1 200 OK\r\n\r\n" + strings.Repeat("payload ", 1000)

	host, port, done := rawServer(t, response, 7)
	res, err := NewClient(transport.NewTCP(), testRequest(), WithMode(ModeBuffer)).Do(context.Background(), host, port)
	assert.Nil(t, err)
	buffered := string(res.Response.Body.Buffer)
	<-done

	host, port, done = rawServer(t, response, 7)
	res, err = NewClient(transport.NewTCP(), testRequest()).Do(context.Background(), host, port)
	assert.Nil(t, err)
	got, rerr := ioutil.ReadAll(res.Response.Body.Stream)
	assert.Nil(t, rerr)
	assert.Equal(t, buffered, string(got))
	<-done
}
