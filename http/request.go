package http

import (
	"net"
	"strings"

	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/kv"
	"github.com/indigo-web/utils/strcomp"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// Request represents HTTP request metadata. The body isn't a part of it, as it arrives
// asynchronously and is delivered through callbacks.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path holds the request target with the query stripped.
	Path string
	// Query is the raw query string without the leading question mark.
	Query string
	// Protocol is the enum of a protocol used for the request.
	Protocol proto.Protocol
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive.
	Headers Headers
	// ContentLength is the declared body length. -1 means the length is unknown and the
	// body is either chunked or absent.
	ContentLength int64
	// Chunked is set when the body is transferred with the chunked transfer coding.
	Chunked bool
	// Trailers are the fields received after the chunked body or, for outgoing requests,
	// the fields to be sent after it.
	Trailers Headers
	// Remote holds the remote address.
	Remote net.Addr
}

func NewRequest() *Request {
	return &Request{
		Method:        method.Unknown,
		Protocol:      proto.HTTP11,
		Headers:       kv.NewPrealloc(10),
		ContentLength: -1,
		Trailers:      kv.New(),
	}
}

// URI returns the request target as it'd appear in the request line.
func (r *Request) URI() string {
	if len(r.Query) == 0 {
		return r.Path
	}

	return r.Path + "?" + r.Query
}

// ContentType returns the Content-Type header value.
func (r *Request) ContentType() string {
	return r.Headers.Value("content-type")
}

// Accept returns all the Accept header values joined into a single list.
func (r *Request) Accept() string {
	var values []string
	for value := range r.Headers.Values("accept") {
		values = append(values, value)
	}

	return strings.Join(values, ",")
}

// HasBody reports whether the request carries a body at all.
func (r *Request) HasBody() bool {
	return r.Chunked || r.ContentLength > 0
}

// KeepAlive reports whether the connection may persist after the request, as
// stated by the protocol version and the Connection header.
func (r *Request) KeepAlive() bool {
	switch r.Protocol {
	case proto.HTTP10:
		return hasToken(r.Headers, "connection", "keep-alive")
	case proto.HTTP11:
		return !hasToken(r.Headers, "connection", "close")
	default:
		return false
	}
}

// Upgrade returns the requested protocol from the Upgrade header, if any.
func (r *Request) Upgrade() string {
	if !hasToken(r.Headers, "connection", "upgrade") {
		return ""
	}

	return r.Headers.Value("upgrade")
}

// Reset the request
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	r.Query = ""
	r.Protocol = proto.HTTP11
	r.Headers.Clear()
	r.ContentLength = -1
	r.Chunked = false
	r.Trailers.Clear()
}

func hasToken(headers Headers, key, token string) bool {
	for value := range headers.Values(key) {
		for value != "" {
			var elem string
			elem, value, _ = strings.Cut(value, ",")
			if strcomp.EqualFold(strings.TrimSpace(elem), token) {
				return true
			}
		}
	}

	return false
}
