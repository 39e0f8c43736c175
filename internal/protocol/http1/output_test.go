package http1

import (
	"bufio"
	"bytes"
	"io"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/transport"
	"github.com/indigo-web/ember/transport/dummy"
	"github.com/stretchr/testify/require"
)

type testHooks struct {
	session  *dummy.Session
	gen      *Generator
	info     *Info
	outcomes []Outcome
}

func newTestHooks(request *http.Request, response *http.Response) *testHooks {
	return &testHooks{
		session: dummy.NewSession(),
		gen:     NewGenerator(),
		info:    &Info{Request: request, Response: response},
	}
}

func (t *testHooks) Session() transport.Session { return t.session }
func (t *testHooks) Generator() *Generator      { return t.gen }
func (t *testHooks) Info() *Info                { return t.info }
func (t *testHooks) HeaderBuffer() []byte       { return make([]byte, 0, 128) }
func (t *testHooks) Complete(outcome Outcome)   { t.outcomes = append(t.outcomes, outcome) }

func newServerStream() (*OutputStream, *testHooks) {
	hooks := newTestHooks(nil, http.NewResponse())
	return NewOutputStream(hooks), hooks
}

func readResponse(t *testing.T, data []byte, method string) (*stdhttp.Response, string) {
	resp, err := stdhttp.ReadResponse(
		bufio.NewReader(bytes.NewReader(data)), &stdhttp.Request{Method: method},
	)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func decodeChunked(t *testing.T, data []byte) string {
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
	var body []byte

	for len(data) > 0 {
		chunk, extra, err := parser.Parse(data, false)
		body = append(body, chunk...)
		if err == io.EOF {
			require.Empty(t, extra)
			return string(body)
		}

		require.NoError(t, err)
		data = extra
	}

	t.Fatal("chunked stream isn't terminated")
	return ""
}

func TestOutputStream(t *testing.T) {
	t.Run("write and close", func(t *testing.T) {
		stream, hooks := newServerStream()
		require.NoError(t, stream.WriteAndClose([]byte("A"), []byte("B")))

		want := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nAB"
		require.Equal(t, want, string(hooks.session.Written()))
		require.Equal(t, []Outcome{{}}, hooks.outcomes)
		require.True(t, stream.Closed())
		require.Equal(t, int64(2), hooks.info.Response.ContentLength)
	})

	t.Run("chunked", func(t *testing.T) {
		stream, hooks := newServerStream()
		_, err := stream.Write([]byte("XXX"))
		require.NoError(t, err)
		_, err = stream.Write([]byte("YYYYY"))
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		data := hooks.session.Written()
		want := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nXXX\r\n5\r\nYYYYY\r\n0\r\n\r\n"
		require.Equal(t, want, string(data))

		head := bytes.Index(data, []byte("\r\n\r\n")) + 4
		require.Equal(t, "XXXYYYYY", decodeChunked(t, data[head:]))

		resp, body := readResponse(t, data, "GET")
		require.Equal(t, []string{"chunked"}, resp.TransferEncoding)
		require.Equal(t, "XXXYYYYY", body)
		require.True(t, hooks.gen.Chunked())
	})

	t.Run("chunked with trailers", func(t *testing.T) {
		stream, hooks := newServerStream()
		hooks.info.Response.Headers.Add("Trailer", "Checksum")
		hooks.info.Response.Trailers.Add("Checksum", "abc")
		_, err := stream.Write([]byte("data"))
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		resp, body := readResponse(t, hooks.session.Written(), "GET")
		require.Equal(t, "data", body)
		require.Equal(t, "abc", resp.Trailer.Get("Checksum"))
	})

	t.Run("commit once", func(t *testing.T) {
		stream, hooks := newServerStream()
		require.False(t, stream.Committed())
		require.NoError(t, stream.Commit())
		require.True(t, stream.Committed())
		require.ErrorIs(t, stream.Commit(), ErrCommitted)

		require.NoError(t, stream.Close())
		require.NoError(t, stream.Close())
		require.Len(t, hooks.outcomes, 1)
		require.True(t, hooks.outcomes[0].Succeeded())

		require.ErrorIs(t, stream.Commit(), ErrClosed)
		_, err := stream.Write([]byte("late"))
		require.ErrorIs(t, err, ErrClosed)
		require.ErrorIs(t, stream.WriteAndClose([]byte("late")), ErrClosed)

		_, body := readResponse(t, hooks.session.Written(), "GET")
		require.Empty(t, body)
	})

	t.Run("close without commit", func(t *testing.T) {
		stream, hooks := newServerStream()
		require.NoError(t, stream.Close())
		require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", string(hooks.session.Written()))
	})

	t.Run("declared length", func(t *testing.T) {
		stream, hooks := newServerStream()
		hooks.info.Response.ContentLength = 5
		_, err := stream.Write([]byte("Hel"))
		require.NoError(t, err)
		_, err = stream.Write([]byte("lo"))
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		resp, body := readResponse(t, hooks.session.Written(), "GET")
		require.Equal(t, int64(5), resp.ContentLength)
		require.Equal(t, "Hello", body)
	})

	t.Run("overflow", func(t *testing.T) {
		stream, hooks := newServerStream()
		hooks.info.Response.ContentLength = 2
		_, err := stream.Write([]byte("ABC"))
		require.ErrorIs(t, err, ErrFraming)
		require.True(t, stream.Closed())
		require.Len(t, hooks.outcomes, 1)
		require.ErrorIs(t, hooks.outcomes[0].Err, ErrFraming)

		_, err = stream.Write([]byte("A"))
		require.ErrorIs(t, err, ErrClosed)
		require.NoError(t, stream.Close())
		require.Len(t, hooks.outcomes, 1)
	})

	t.Run("short body", func(t *testing.T) {
		stream, hooks := newServerStream()
		hooks.info.Response.ContentLength = 5
		_, err := stream.Write([]byte("AB"))
		require.NoError(t, err)
		require.ErrorIs(t, stream.Close(), ErrFraming)
		require.Len(t, hooks.outcomes, 1)
		require.False(t, hooks.outcomes[0].Succeeded())
	})

	t.Run("transport failure", func(t *testing.T) {
		stream, hooks := newServerStream()
		hooks.session.Failing()
		require.ErrorIs(t, stream.WriteAndClose([]byte("data")), transport.ErrClosed)
		require.Len(t, hooks.outcomes, 1)
		require.ErrorIs(t, hooks.outcomes[0].Err, transport.ErrClosed)
	})

	t.Run("no info", func(t *testing.T) {
		hooks := newTestHooks(nil, nil)
		hooks.info = nil
		stream := NewOutputStream(hooks)
		require.ErrorIs(t, stream.Commit(), ErrFraming)
		require.Len(t, hooks.outcomes, 1)
	})

	t.Run("HEAD", func(t *testing.T) {
		request := http.NewRequest()
		request.Method = method.HEAD
		hooks := newTestHooks(request, http.NewResponse())
		stream := NewOutputStream(hooks)
		require.NoError(t, stream.WriteAndClose([]byte("Hello")))

		want := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n"
		require.Equal(t, want, string(hooks.session.Written()))
	})

	t.Run("no content status", func(t *testing.T) {
		hooks := newTestHooks(nil, http.NewResponse())
		hooks.info.Response.Code = status.NoContent
		stream := NewOutputStream(hooks)
		_, err := stream.Write([]byte("ignored"))
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		require.Equal(t, "HTTP/1.1 204 No Content\r\n\r\n", string(hooks.session.Written()))
	})

	t.Run("persistence", func(t *testing.T) {
		request := http.NewRequest()
		request.Protocol = proto.HTTP10
		response := http.NewResponse()
		response.Protocol = proto.HTTP10
		hooks := newTestHooks(request, response)
		stream := NewOutputStream(hooks)
		_, err := stream.Write([]byte("unknown length"))
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		require.False(t, hooks.gen.Persistent())
		require.Equal(t, "HTTP/1.0 200 OK\r\n\r\nunknown length", string(hooks.session.Written()))

		request = http.NewRequest()
		request.Protocol = proto.HTTP10
		request.Headers.Add("Connection", "keep-alive")
		response = http.NewResponse()
		response.Protocol = proto.HTTP10
		hooks = newTestHooks(request, response)
		require.NoError(t, NewOutputStream(hooks).WriteAndClose([]byte("ok")))
		require.True(t, hooks.gen.Persistent())
		require.Equal(t,
			"HTTP/1.0 200 OK\r\nConnection: keep-alive\r\nContent-Length: 2\r\n\r\nok",
			string(hooks.session.Written()),
		)

		request = http.NewRequest()
		request.Headers.Add("Connection", "close")
		hooks = newTestHooks(request, http.NewResponse())
		require.NoError(t, NewOutputStream(hooks).Close())
		require.False(t, hooks.gen.Persistent())
		require.Equal(t,
			"HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n",
			string(hooks.session.Written()),
		)
	})

	t.Run("user framing headers are dropped", func(t *testing.T) {
		stream, hooks := newServerStream()
		hooks.info.Response.Headers.
			Add("Content-Length", "100").
			Add("Transfer-Encoding", "gzip").
			Add("X-Custom", "yes")
		require.NoError(t, stream.WriteAndClose([]byte("ok")))

		want := "HTTP/1.1 200 OK\r\nX-Custom: yes\r\nContent-Length: 2\r\n\r\nok"
		require.Equal(t, want, string(hooks.session.Written()))
	})
}

func TestClientMode(t *testing.T) {
	t.Run("request with body", func(t *testing.T) {
		request := http.NewRequest()
		request.Method = method.POST
		request.Path = "/upload"
		request.Query = "name=x"
		request.Headers.Add("Host", "localhost")
		hooks := newTestHooks(request, nil)
		stream := NewOutputStream(hooks)
		_, err := stream.Write([]byte("part"))
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		parsed, err := stdhttp.ReadRequest(bufio.NewReader(bytes.NewReader(hooks.session.Written())))
		require.NoError(t, err)
		require.Equal(t, "POST", parsed.Method)
		require.Equal(t, "/upload?name=x", parsed.RequestURI)
		body, err := io.ReadAll(parsed.Body)
		require.NoError(t, err)
		require.Equal(t, "part", string(body))
	})

	t.Run("bodiless request", func(t *testing.T) {
		request := http.NewRequest()
		request.Method = method.GET
		request.Path = "/"
		hooks := newTestHooks(request, nil)
		require.NoError(t, NewOutputStream(hooks).Close())
		require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(hooks.session.Written()))
	})

	t.Run("request stream", func(t *testing.T) {
		request := http.NewRequest()
		request.Method = method.PUT
		request.Path = "/resource"
		session := dummy.NewSession()

		var outcomes []Outcome
		stream := NewRequestStream(session, request, func(outcome Outcome) {
			outcomes = append(outcomes, outcome)
		})
		require.NoError(t, stream.WriteAndClose([]byte("data")))
		require.Equal(t, "PUT /resource HTTP/1.1\r\nContent-Length: 4\r\n\r\ndata", string(session.Written()))
		require.Equal(t, []Outcome{{}}, outcomes)
	})

	t.Run("unknown length over HTTP/1.0", func(t *testing.T) {
		request := http.NewRequest()
		request.Method = method.POST
		request.Path = "/"
		request.Protocol = proto.HTTP10
		hooks := newTestHooks(request, nil)
		_, err := NewOutputStream(hooks).Write([]byte("data"))
		require.ErrorIs(t, err, ErrFraming)
		require.True(t, strings.Contains(err.Error(), "unknown length"))
	})
}
