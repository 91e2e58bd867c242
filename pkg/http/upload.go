package http

import (
	"io"
)

// UploadSource supplies one unit of request body bytes. Sources are drained
// fully, in order, while the request is being built; a failure from any
// source aborts the build and its error is propagated to the caller
// unchanged.
type UploadSource interface {
	// ReadAll drains all of the source's bytes into dst
	ReadAll(dst io.Writer) error
}

// BytesSource serves a byte slice. It is stateless and may be drained more
// than once, which matters when a loader rebuilds the request for a redirect.
type BytesSource struct {
	b []byte
}

func NewBytesSource(b []byte) *BytesSource {
	return &BytesSource{b: b}
}

func (s *BytesSource) ReadAll(dst io.Writer) error {
	for off := 0; off < len(s.b); {
		end := off + TransferChunkSize
		if end > len(s.b) {
			end = len(s.b)
		}
		n, err := dst.Write(s.b[off:end])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

// ReaderSource drains an io.Reader until EOF. It is one-shot: a second
// ReadAll yields no bytes.
type ReaderSource struct {
	r io.Reader
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) ReadAll(dst io.Writer) error {
	buf := make([]byte, TransferChunkSize)
	_, err := io.CopyBuffer(dst, s.r, buf)
	return err
}
