package http

import (
	"context"
	"errors"
	"fmt"
	"io"

	neterrors "github.com/edgequill/netload/pkg/errors"
	"github.com/edgequill/netload/pkg/log"
	"github.com/edgequill/netload/pkg/transport"
	"github.com/segmentio/ksuid"
	"github.com/valyala/bytebufferpool"
)

// TransferChunkSize is the fixed unit used to move body bytes between the
// receive buffer and a body stream or sized buffer.
const TransferChunkSize = 64 * 1024

// BodyMode selects how the response body is delivered. The mode is fixed
// before any body bytes are available.
type BodyMode int

const (
	// ModeStream hands the consumer a live byte stream before the body has
	// arrived and forwards chunks under backpressure. This is the default.
	ModeStream BodyMode = iota
	// ModeBuffer materializes the whole body into a sized buffer before
	// the response is delivered.
	ModeBuffer
)

func (m BodyMode) String() string {
	if m == ModeBuffer {
		return "buffer"
	}
	return "stream"
}

type state int

const (
	stateResolving state = iota
	stateConnecting
	stateHandshaking
	stateWriting
	stateReadingStatusLine
	stateReadingHeaders
	stateRedirectDetected
	stateBufferingBody
	stateStreamingBody
)

var stateNames = map[state]string{
	stateResolving:         "resolving",
	stateConnecting:        "connecting",
	stateHandshaking:       "handshaking",
	stateWriting:           "writing",
	stateReadingStatusLine: "reading-status-line",
	stateReadingHeaders:    "reading-headers",
	stateRedirectDetected:  "redirect-detected",
	stateBufferingBody:     "buffering-body",
	stateStreamingBody:     "streaming-body",
}

func (s state) String() string {
	return stateNames[s]
}

// Client drives one request attempt over one connection. Instances are
// single-shot: a redirect or failure does not rewind the state machine, the
// loader starts a fresh client instead. All mutable state is owned by the
// instance; nothing is shared between concurrently active clients.
type Client struct {
	conn transport.Conn
	req  *Request
	mode BodyMode
	id   ksuid.KSUID

	state state
	pump  writePump
	rb    recvBuffer

	httpVersion   string
	statusCode    int
	statusMessage string

	resp     *Response
	location string
}

type Option func(*Client)

// WithMode selects the body delivery mode, ModeStream by default
func WithMode(m BodyMode) Option {
	return func(c *Client) {
		c.mode = m
	}
}

func NewClient(conn transport.Conn, req *Request, opts ...Option) *Client {
	c := &Client{
		conn: conn,
		req:  req,
		mode: ModeStream,
		id:   ksuid.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs the request attempt to its terminal outcome. Exactly one of the
// return values is meaningful: a Result carrying a full response or a
// detected redirect, or a coded error. Every status code other than 301/302
// is a deliverable response; 4xx and 5xx are not errors at this layer.
//
// In ModeStream the Result is returned as soon as headers are parsed, with
// body bytes continuing to flow into Result.Response.Body.Stream; the
// connection is closed when the body ends or the consumer closes the stream.
// In every other outcome the connection is closed before Do returns. After a
// failure no further transport operations are issued by this instance.
func (c *Client) Do(ctx context.Context, host, port string) (*Result, error) {
	header, body, err := c.req.Build()
	if err != nil {
		return nil, err
	}
	defer bytebufferpool.Put(header)
	defer bytebufferpool.Put(body)

	c.pump = writePump{header: header.B, body: body.B}

	closeConn := true
	defer func() {
		if closeConn {
			c.conn.Close()
		}
	}()

	for {
		log.Trace().Str("id", c.id.String()).Stringer("state", c.state).Msg("client state")

		switch c.state {
		case stateResolving:
			if err := c.conn.Resolve(ctx, host, port); err != nil {
				return nil, c.fail(neterrors.CodeNameNotResolved, "resolve host", err)
			}
			c.state = stateConnecting

		case stateConnecting:
			if err := c.conn.Connect(ctx); err != nil {
				return nil, c.fail(neterrors.CodeConnectionFailed, "connect", err)
			}
			c.state = stateHandshaking

		case stateHandshaking:
			if err := c.conn.Handshake(ctx); err != nil {
				return nil, c.fail(neterrors.CodeHandshakeNotCompleted, "handshake", err)
			}
			c.state = stateWriting

		case stateWriting:
			for !c.pump.done() {
				n, err := c.conn.Write(c.pump.pending())
				if err != nil {
					return nil, c.fail(neterrors.CodeFailed, "write request", err)
				}
				c.pump.advance(n)
			}
			c.state = stateReadingStatusLine

		case stateReadingStatusLine:
			line, err := c.nextLine()
			if err != nil {
				return nil, c.fail(neterrors.CodeFailed, "read status line", err)
			}
			version, code, message, ok := parseStatusLine(line)
			if !ok {
				return nil, c.fail(neterrors.CodeInvalidResponse, "parse status line",
					fmt.Errorf("malformed status line %q", line))
			}
			// all status codes proceed to header parsing; none are
			// errors at this layer
			c.httpVersion = version
			c.statusCode = code
			c.statusMessage = message
			c.state = stateReadingHeaders

		case stateReadingHeaders:
			if err := c.readHeaders(); err != nil {
				return nil, err
			}

		case stateRedirectDetected:
			log.Debug().Str("id", c.id.String()).Int("sc", c.statusCode).Str("location", c.location).Msg("redirect detected")
			return &Result{Redirect: &Redirect{StatusCode: c.statusCode, Location: c.location}}, nil

		case stateBufferingBody:
			if err := c.bufferBody(); err != nil {
				return nil, err
			}
			return &Result{Response: c.resp}, nil

		case stateStreamingBody:
			pr, pw := io.Pipe()
			c.resp.Body = &Body{Stream: pr}
			// the stream pump owns the connection from here on
			closeConn = false
			go c.streamBody(pw)
			return &Result{Response: c.resp}, nil
		}
	}
}

// fail is the single error exit: every failure is logged and wrapped once
func (c *Client) fail(code neterrors.Code, op string, err error) error {
	log.Debug().Str("id", c.id.String()).Stringer("state", c.state).Err(err).Msg(op + " failed")
	return neterrors.Wrap(code, op, err)
}

// nextLine fills the receive buffer until one full line is available and
// claims it
func (c *Client) nextLine() ([]byte, error) {
	for {
		if line, ok := c.rb.readLine(); ok {
			return line, nil
		}
		if err := c.rb.fill(c.conn); err != nil {
			return nil, err
		}
	}
}

// readHeaders consumes header lines up to the blank line. For 301/302 no
// response object is constructed; the Location header (matched exactly, last
// occurrence wins) becomes the terminal redirect outcome. For every other
// status a response object is built with the full ordered header list and
// the configured body mode decides the next state.
func (c *Client) readHeaders() error {
	redirect := c.statusCode == 301 || c.statusCode == 302
	if !redirect {
		c.resp = &Response{
			StatusCode: c.statusCode,
			StatusLine: statusLine(c.httpVersion, c.statusCode, c.statusMessage),
			URL:        c.req.URL,
		}
	}

	for {
		line, err := c.nextLine()
		if err != nil {
			return c.fail(neterrors.CodeFailed, "read headers", err)
		}
		if len(line) == 0 {
			break
		}
		name, value := parseHeaderField(line)
		if redirect {
			if name == "Location" {
				c.location = value
			}
			continue
		}
		c.resp.AddHeader(name, value)
	}

	switch {
	case redirect:
		c.state = stateRedirectDetected
	case c.mode == ModeBuffer:
		c.state = stateBufferingBody
	default:
		c.state = stateStreamingBody
	}
	return nil
}

// bufferBody accumulates the remainder of the connection, then copies it
// into a buffer sized exactly to the received byte count, one transfer chunk
// at a time. A TLS truncation is treated as a benign EOF.
func (c *Client) bufferBody() error {
	for {
		err := c.rb.fill(c.conn)
		if err == nil {
			continue
		}
		if benignEOF(err) {
			break
		}
		return c.fail(neterrors.CodeFailed, "read body", err)
	}

	size := c.rb.unclaimed()
	buf := make([]byte, size)
	for done := 0; done < size; {
		chunk := c.rb.next(TransferChunkSize)
		done += copy(buf[done:], chunk)
	}
	c.resp.Body = &Body{Buffer: buf}
	return nil
}

// streamBody pushes body bytes to the producer half of the stream in
// transfer chunks. A blocked push suspends this goroutine until the consumer
// drains or closes; a consumer close is a clean early termination, not an
// error. Transport EOF, or any read error in streamed mode, ends the body by
// closing the producer; the consumer observes a plain EOF.
func (c *Client) streamBody(pw *io.PipeWriter) {
	defer c.conn.Close()

	for {
		if err := c.pushChunks(pw); err != nil {
			log.Trace().Str("id", c.id.String()).Err(err).Msg("stream consumer closed")
			pw.Close()
			return
		}
		if err := c.rb.fill(c.conn); err != nil {
			if !benignEOF(err) {
				log.Debug().Str("id", c.id.String()).Err(err).Msg("stream body read ended")
			}
			pw.Close()
			return
		}
	}
}

// pushChunks forwards all currently buffered bytes, never advancing past a
// chunk that has not been fully accepted
func (c *Client) pushChunks(pw *io.PipeWriter) error {
	for c.rb.unclaimed() > 0 {
		chunk := c.rb.next(TransferChunkSize)
		if _, err := pw.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

func benignEOF(err error) bool {
	// io.ErrUnexpectedEOF is how a TLS truncation surfaces
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func statusLine(version string, code int, message string) string {
	if message == "" {
		return fmt.Sprintf("%s %d", version, code)
	}
	return fmt.Sprintf("%s %d %s", version, code, message)
}
