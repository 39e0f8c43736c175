package http1

import (
	"fmt"
	"strconv"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/kv"
	"github.com/indigo-web/utils/strcomp"
)

// ChunkHeaderSize is the capacity of the buffer chunk prefixes are generated into. It fits
// the CRLF terminating the previous chunk, the longest hexadecimal length and a CRLF.
const ChunkHeaderSize = len("\r\n") + 16 + len("\r\n")

// Info is the metadata of the message being generated. In server mode, Response is
// framed and Request (if presented) is the request it answers. In client mode
// Response is nil and Request is framed.
type Info struct {
	Request  *http.Request
	Response *http.Response
}

func (i *Info) server() bool {
	return i.Response != nil
}

func (i *Info) setContentLength(n int64) {
	if i.server() {
		i.Response.ContentLength = n
	} else {
		i.Request.ContentLength = n
	}
}

type framing uint8

const (
	// lengthFramed bodies are delimited by the Content-Length.
	lengthFramed framing = iota
	chunked
	// closeDelimited bodies last until the connection is closed.
	closeDelimited
	noBody
)

// Generator generates HTTP/1.x messages. It doesn't write anything by itself, instead every
// call results in a Result telling what to do next. The produced frame is available via
// Frame after Flush.
type Generator struct {
	state      State
	framing    framing
	persistent bool
	needCRLF   bool
	declared   int64
	written    int64
	trailers   *kv.Storage
	frame      [][]byte
}

func NewGenerator() *Generator {
	g := &Generator{frame: make([][]byte, 0, 3)}
	g.Reset()

	return g
}

func (g *Generator) State() State {
	return g.state
}

// Persistent reports whether the connection may be reused after the message. It's
// meaningful only after the message was committed.
func (g *Generator) Persistent() bool {
	return g.persistent
}

// Chunked reports whether the body is transferred using chunked coding.
func (g *Generator) Chunked() bool {
	return g.framing == chunked
}

// Frame returns the buffers generated by the last call returned Flush, in order they must
// be written.
func (g *Generator) Frame() [][]byte {
	return g.frame
}

func (g *Generator) Reset() {
	g.state = StateStart
	g.framing = lengthFramed
	g.persistent = true
	g.needCRLF = false
	g.declared = -1
	g.written = 0
	g.trailers = nil
	g.frame = g.frame[:0]
}

// Generate advances the message. The info is required only in StateStart, header is the
// buffer the head is appended to and chunk is the buffer for chunk framing. Nil buffers
// are requested via NeedHeader and NeedChunk correspondingly. The content is consumed
// entirely by the call returning Flush.
func (g *Generator) Generate(info *Info, header, chunk, content []byte, last bool) (Result, error) {
	g.frame = g.frame[:0]

	switch g.state {
	case StateStart:
		if info == nil {
			return NeedInfo, nil
		}

		if header == nil {
			return NeedHeader, nil
		}

		if err := g.prepare(info, content, last); err != nil {
			return 0, err
		}

		header = g.appendHead(header[:0], info)
		if len(content) > 0 && g.framing == chunked {
			header = g.appendChunkPrefix(header, len(content))
		}

		g.frame = append(g.frame, header)
		g.appendContent(content)

		if last {
			g.state = StateCompleting
		} else {
			g.state = StateCommitted
		}

		return Flush, nil
	case StateCommitted:
		if len(content) == 0 {
			if last {
				g.state = StateCompleting
				return Continue, nil
			}

			return Done, nil
		}

		if err := g.checkLength(len(content)); err != nil {
			return 0, err
		}

		if g.framing == chunked {
			if chunk == nil {
				return NeedChunk, nil
			}

			g.frame = append(g.frame, g.appendChunkPrefix(chunk[:0], len(content)))
		}

		g.appendContent(content)
		if last {
			g.state = StateCompleting
		}

		return Flush, nil
	case StateCompleting:
		if len(content) > 0 {
			return 0, fmt.Errorf("%w: content after the last one in %s state", ErrFraming, g.state)
		}

		switch g.framing {
		case chunked:
			if chunk == nil {
				return NeedChunk, nil
			}

			g.frame = append(g.frame, g.appendLastChunk(chunk[:0]))
			g.state = StateEnd

			return Flush, nil
		case lengthFramed:
			if g.written < g.declared {
				return 0, fmt.Errorf(
					"%w: %d bytes written of declared %d", ErrFraming, g.written, g.declared,
				)
			}
		case closeDelimited:
			g.persistent = false
		}

		g.state = StateEnd
		return Done, nil
	case StateEnd:
		if len(content) > 0 {
			return 0, fmt.Errorf("%w: content in %s state", ErrFraming, g.state)
		}

		return Done, nil
	default:
		return 0, fmt.Errorf("%w: unknown state %d", ErrFraming, g.state)
	}
}

func (g *Generator) prepare(info *Info, content []byte, last bool) error {
	if info.server() {
		return g.prepareResponse(info.Request, info.Response, content, last)
	}

	if info.Request == nil {
		return fmt.Errorf("%w: neither request nor response is set", ErrFraming)
	}

	return g.prepareRequest(info.Request, content, last)
}

func (g *Generator) prepareResponse(req *http.Request, resp *http.Response, content []byte, last bool) error {
	chunkable := resp.Protocol == proto.HTTP11
	g.persistent = true
	if req != nil {
		chunkable = chunkable && req.Protocol == proto.HTTP11
		g.persistent = req.KeepAlive()
	}

	if resp.Close() {
		g.persistent = false
	}

	g.trailers = resp.Trailers

	switch {
	case !status.HasBody(resp.Code) || (req != nil && req.Method == method.CONNECT && resp.Code/100 == 2):
		g.framing = noBody
		g.declared = -1
	case req != nil && req.Method == method.HEAD:
		g.framing = noBody
		g.declared = resp.ContentLength
		if g.declared < 0 && last {
			g.declared = int64(len(content))
		}
	default:
		return g.chooseFraming(resp.ContentLength, content, last, chunkable)
	}

	return nil
}

func (g *Generator) prepareRequest(req *http.Request, content []byte, last bool) error {
	g.persistent = req.KeepAlive()
	g.trailers = req.Trailers

	if req.ContentLength < 0 && last && len(content) == 0 && !expectsBody(req.Method) {
		g.framing = noBody
		g.declared = -1
		return nil
	}

	if err := g.chooseFraming(req.ContentLength, content, last, req.Protocol == proto.HTTP11); err != nil {
		return err
	}

	if g.framing == closeDelimited {
		return fmt.Errorf("%w: %s request body of unknown length", ErrFraming, req.Protocol)
	}

	return nil
}

func (g *Generator) chooseFraming(contentLength int64, content []byte, last, chunkable bool) error {
	switch {
	case contentLength >= 0:
		g.framing = lengthFramed
		g.declared = contentLength
	case last:
		g.framing = lengthFramed
		g.declared = int64(len(content))
	case chunkable:
		g.framing = chunked
	default:
		g.framing = closeDelimited
		g.persistent = false
	}

	return g.checkLength(len(content))
}

func (g *Generator) checkLength(n int) error {
	if g.framing == lengthFramed && g.written+int64(n) > g.declared {
		return fmt.Errorf(
			"%w: %d bytes exceed declared content length %d", ErrFraming, g.written+int64(n), g.declared,
		)
	}

	return nil
}

func (g *Generator) appendContent(content []byte) {
	if len(content) == 0 || g.framing == noBody {
		return
	}

	g.written += int64(len(content))
	g.frame = append(g.frame, content)
}

func (g *Generator) appendHead(buff []byte, info *Info) []byte {
	var (
		headers  *kv.Storage
		protocol proto.Protocol
	)

	if info.server() {
		resp := info.Response
		headers, protocol = resp.Headers, resp.Protocol
		buff = append(buff, protocol.String()...)
		buff = append(buff, ' ')
		buff = status.AppendCode(buff, resp.Code)
		buff = append(buff, ' ')
		buff = append(buff, resp.Status()...)
		buff = crlf(buff)
		if info.Request != nil {
			protocol = info.Request.Protocol
		}
	} else {
		req := info.Request
		headers, protocol = req.Headers, req.Protocol
		buff = append(buff, req.Method.String()...)
		buff = append(buff, ' ')
		buff = append(buff, req.URI()...)
		buff = append(buff, ' ')
		buff = append(buff, protocol.String()...)
		buff = crlf(buff)
	}

	var hasConnection bool
	for key, value := range headers.Pairs() {
		if strcomp.EqualFold(key, "content-length") || strcomp.EqualFold(key, "transfer-encoding") {
			continue
		}

		hasConnection = hasConnection || strcomp.EqualFold(key, "connection")
		buff = appendHeader(buff, key, value)
	}

	if !hasConnection {
		switch {
		case !g.persistent && protocol == proto.HTTP11:
			buff = appendHeader(buff, "Connection", "close")
		case g.persistent && protocol == proto.HTTP10:
			buff = appendHeader(buff, "Connection", "keep-alive")
		}
	}

	switch {
	case g.framing == chunked:
		buff = appendHeader(buff, "Transfer-Encoding", "chunked")
	case g.declared >= 0:
		buff = append(buff, "Content-Length: "...)
		buff = strconv.AppendInt(buff, g.declared, 10)
		buff = crlf(buff)
	}

	return crlf(buff)
}

func (g *Generator) appendChunkPrefix(buff []byte, n int) []byte {
	if g.needCRLF {
		buff = crlf(buff)
	}

	buff = strconv.AppendUint(buff, uint64(n), 16)
	g.needCRLF = true

	return crlf(buff)
}

func (g *Generator) appendLastChunk(buff []byte) []byte {
	if g.needCRLF {
		buff = crlf(buff)
	}

	g.needCRLF = false
	buff = append(buff, '0', '\r', '\n')
	for key, value := range g.trailers.Pairs() {
		buff = appendHeader(buff, key, value)
	}

	return crlf(buff)
}

func appendHeader(buff []byte, key, value string) []byte {
	buff = append(buff, key...)
	buff = append(buff, ':', ' ')
	buff = append(buff, value...)
	return crlf(buff)
}

func crlf(buff []byte) []byte {
	return append(buff, '\r', '\n')
}

func expectsBody(m method.Method) bool {
	switch m {
	case method.POST, method.PUT, method.PATCH:
		return true
	default:
		return false
	}
}
