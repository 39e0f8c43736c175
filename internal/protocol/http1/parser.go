package http1

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// Parser parses request heads. The data may come in arbitrary pieces.
type Parser struct {
	cfg     config.HTTP
	request *http.Request
	buff    []byte
	scanned int
}

func NewParser(cfg config.HTTP, request *http.Request) *Parser {
	return &Parser{
		cfg:     cfg,
		request: request,
	}
}

// Parse accumulates the data until the whole head is received and parses it into the
// request. extra is the part of data following the head, which is either the body or
// the next request.
func (p *Parser) Parse(data []byte) (done bool, extra []byte, err error) {
	if len(p.buff) == 0 {
		// empty lines preceding the request line are ignored
		data = bytes.TrimLeft(data, "\r\n")
		if len(data) == 0 {
			return false, nil, nil
		}
	}

	prev := len(p.buff)
	p.buff = append(p.buff, data...)

	end := headEnd(p.buff, max(p.scanned-3, 0))
	if end == -1 {
		if len(p.buff) > p.cfg.MaxHeadLength {
			return true, nil, tooLarge(p.buff)
		}

		p.scanned = len(p.buff)
		return false, nil, nil
	}

	if end > p.cfg.MaxHeadLength {
		return true, nil, tooLarge(p.buff[:end])
	}

	extra = data[end-prev:]
	head := string(p.buff[:end])
	p.buff, p.scanned = p.buff[:0], 0

	return true, extra, p.parse(head)
}

// Reset prepares the parser for the next request.
func (p *Parser) Reset(request *http.Request) {
	p.request = request
	p.buff = p.buff[:0]
	p.scanned = 0
}

func (p *Parser) parse(head string) error {
	request := p.request
	line, rest, _ := strings.Cut(head, "\n")

	if err := parseRequestLine(request, strings.TrimSuffix(line, "\r")); err != nil {
		return err
	}

	var (
		headersNumber int
		contentLength = int64(-1)
	)

	for rest != "" {
		line, rest, _ = strings.Cut(rest, "\n")
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}

		if line[0] == ' ' || line[0] == '\t' {
			// obsolete line folding
			return status.ErrBadRequest
		}

		key, value, found := strings.Cut(line, ":")
		if !found || len(key) == 0 || strings.ContainsAny(key, " \t") {
			return status.ErrBadRequest
		}

		if headersNumber++; headersNumber > p.cfg.MaxHeaders {
			return status.ErrHeaderFieldsTooLarge
		}

		value = strings.TrimSpace(value)
		request.Headers.Add(key, value)

		switch {
		case strcomp.EqualFold(key, "content-length"):
			length, err := strconv.ParseInt(value, 10, 64)
			if err != nil || length < 0 || (contentLength != -1 && contentLength != length) {
				return status.ErrBadContentLength
			}

			contentLength = length
		case strcomp.EqualFold(key, "transfer-encoding"):
			chunked, err := parseTransferEncoding(value)
			if err != nil {
				return err
			}

			request.Chunked = chunked
		}
	}

	if request.Chunked {
		// Transfer-Encoding overrides the Content-Length
		request.ContentLength = -1
	} else {
		request.ContentLength = contentLength
	}

	if request.ContentLength > p.cfg.MaxBodySize {
		return status.ErrBodyTooLarge
	}

	return nil
}

func parseRequestLine(request *http.Request, line string) error {
	methodToken, rest, found := strings.Cut(line, " ")
	if !found {
		return status.ErrBadRequest
	}

	target, protoToken, found := strings.Cut(rest, " ")
	if !found || len(target) == 0 {
		return status.ErrBadRequest
	}

	if request.Method = method.Parse(methodToken); request.Method == method.Unknown {
		return status.ErrMethodNotImplemented
	}

	request.Protocol = proto.FromBytes(uf.S2B(protoToken))
	if request.Protocol&proto.HTTP1 == 0 {
		return status.ErrHTTPVersionNotSupported
	}

	return parseTarget(request, target)
}

func parseTarget(request *http.Request, target string) error {
	switch {
	case target[0] == '/':
	case target == "*" && request.Method == method.OPTIONS:
		request.Path = target
		return nil
	case request.Method == method.CONNECT:
		// authority-form
		request.Path = target
		return nil
	default:
		// absolute-form
		uri, err := url.ParseRequestURI(target)
		if err != nil || len(uri.Host) == 0 {
			return status.ErrBadRequest
		}

		target = uri.RequestURI()
	}

	path, query, _ := strings.Cut(target, "?")
	path, err := url.PathUnescape(path)
	if err != nil {
		return status.ErrBadRequest
	}

	for i := 0; i < len(path); i++ {
		if path[i] < 0x20 || path[i] == 0x7f {
			return status.ErrBadRequest
		}
	}

	request.Path, request.Query = path, query

	return nil
}

// parseTransferEncoding returns whether the body is chunked. Any other coding applied
// last makes the body length undeterminable, which isn't allowed for requests.
func parseTransferEncoding(value string) (chunked bool, err error) {
	var last string
	for token := range strings.SplitSeq(value, ",") {
		if token = strings.TrimSpace(token); len(token) > 0 {
			last = token
		}
	}

	if !strcomp.EqualFold(last, "chunked") {
		return false, status.ErrBadRequest
	}

	return true, nil
}

// headEnd returns the offset right after the empty line terminating the head, or -1.
func headEnd(data []byte, from int) int {
	for i := from; i < len(data); i++ {
		if data[i] != '\n' {
			continue
		}

		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2
		case i+2 < len(data) && data[i+1] == '\r' && data[i+2] == '\n':
			return i + 3
		}
	}

	return -1
}

func tooLarge(head []byte) error {
	if bytes.IndexByte(head, '\n') == -1 {
		return status.NewError(status.RequestURITooLong, "too long request line")
	}

	return status.ErrHeaderFieldsTooLarge
}
