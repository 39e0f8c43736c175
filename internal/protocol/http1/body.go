package http1

import (
	"errors"
	"io"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/status"
)

// bodyReader extracts the request body from the inbound data.
type bodyReader struct {
	chunked   bool
	remaining int64
	received  int64
	maxSize   int64
	trailer   bool
	parser    *chunkedbody.Parser
}

func (b *bodyReader) Reset(request *http.Request, maxSize int64) {
	b.chunked = request.Chunked
	b.remaining = max(request.ContentLength, 0)
	b.received = 0
	b.maxSize = maxSize
	b.trailer = request.Headers.Has("trailer")
	b.parser = nil

	if b.chunked {
		b.parser = chunkedbody.NewParser(chunkedbody.DefaultSettings())
	}
}

// Done reports whether the whole body was already read.
func (b *bodyReader) Done() bool {
	return !b.chunked && b.remaining == 0
}

// Read consumes the next body piece from the data. extra is the rest of the data, which
// isn't processed yet. When the body is complete, done is set and extra contains
// whatever follows the body.
func (b *bodyReader) Read(data []byte) (piece, extra []byte, done bool, err error) {
	if !b.chunked {
		n := min(b.remaining, int64(len(data)))
		b.remaining -= n

		return data[:n], data[n:], b.remaining == 0, nil
	}

	piece, extra, err = b.parser.Parse(data, b.trailer)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		b.chunked = false
		done = true
	default:
		return nil, nil, false, status.ErrBadChunk
	}

	if b.received += int64(len(piece)); b.received > b.maxSize {
		return nil, nil, false, status.ErrBodyTooLarge
	}

	return piece, extra, done, nil
}
