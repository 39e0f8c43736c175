package http

import (
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/kv"
)

// Response is the metadata of an outgoing (or, in client mode, incoming) response.
// It's immutable once committed, except Trailers that are emitted when the body ends.
type Response struct {
	Protocol proto.Protocol
	Code     status.Code
	// Reason is a custom status text. An empty value falls back to the standard one.
	Reason  status.Status
	Headers Headers
	// ContentLength is the declared body length. -1 means unknown: the length is then
	// either deduced from a body written at once or the body is chunked.
	ContentLength int64
	Trailers      Headers
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK
// and unknown content length.
func NewResponse() *Response {
	return &Response{
		Protocol:      proto.HTTP11,
		Code:          status.OK,
		Headers:       kv.NewPrealloc(7),
		ContentLength: -1,
		Trailers:      kv.New(),
	}
}

// Status returns the reason phrase that goes into the status line.
func (r *Response) Status() status.Status {
	if len(r.Reason) > 0 {
		return r.Reason
	}

	return status.Text(r.Code)
}

// Close reports whether the response explicitly asks to close the connection.
func (r *Response) Close() bool {
	return hasToken(r.Headers, "connection", "close")
}

// Reset the response
func (r *Response) Reset() {
	r.Protocol = proto.HTTP11
	r.Code = status.OK
	r.Reason = ""
	r.Headers.Clear()
	r.ContentLength = -1
	r.Trailers.Clear()
}
