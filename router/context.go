package router

import (
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/ember/attr"
	"github.com/indigo-web/ember/conn"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/mime"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/kv"
	json "github.com/json-iterator/go"
)

var ErrNotUpgradable = errors.New("response doesn't switch the connection to a tunnel")

// Stream is the output of the response body.
type Stream interface {
	io.Writer
	Commit() error
	WriteAndClose(bufs ...[]byte) error
	Close() error
	Committed() bool
	Closed() bool
}

// Exchange is everything the connection provides for a single request.
type Exchange struct {
	Request    *http.Request
	Response   *http.Response
	Stream     Stream
	Connection conn.Connection
	// Upgrade turns the connection into a tunnel once the current response is complete.
	// It's nil when the connection can't be upgraded.
	Upgrade func() (*conn.Tunnel, error)
}

// Context is the request-scoped state handlers are called with. It walks the handlers of
// the matched routes in order and delivers the request body asynchronously.
type Context struct {
	ex      Exchange
	id      string
	hits    []Hit
	match   int
	handler int
	current int
	attrs   attr.Store

	bodyMu            sync.Mutex
	draining          bool
	pending           [][]byte
	contentDone       bool
	messageDone       bool
	onContent         func([]byte)
	onContentComplete []func(*http.Request)
	onMessageComplete []func(*http.Request)
}

func NewContext(ex Exchange, hits []Hit) *Context {
	return &Context{
		ex:      ex,
		id:      uniuri.New(),
		hits:    hits,
		current: -1,
	}
}

// ID is a random identifier of the request, useful for logging.
func (c *Context) ID() string {
	return c.id
}

func (c *Context) Request() *http.Request {
	return c.ex.Request
}

func (c *Context) Response() *http.Response {
	return c.ex.Response
}

func (c *Context) Connection() conn.Connection {
	return c.ex.Connection
}

func (c *Context) Stream() Stream {
	return c.ex.Stream
}

// Hits returns the matched routes in order they're dispatched.
func (c *Context) Hits() []Hit {
	return c.hits
}

// HasNext reports whether there are handlers left to be called.
func (c *Context) HasNext() bool {
	for i := c.match; i < len(c.hits); i++ {
		offset := 0
		if i == c.match {
			offset = c.handler
		}

		if offset < len(c.hits[i].Route.handlers) {
			return true
		}
	}

	return false
}

// Next calls the next handler, which is either the next one of the current route or the
// first one of the next matched route. Returns false if there were no handlers left.
func (c *Context) Next() bool {
	for c.match < len(c.hits) {
		handlers := c.hits[c.match].Route.handlers
		if c.handler < len(handlers) {
			handler := handlers[c.handler]
			c.current = c.match
			c.handler++
			handler(c)
			return true
		}

		c.match++
		c.handler = 0
	}

	return false
}

// Route returns the route the currently running handler belongs to.
func (c *Context) Route() *Route {
	if c.current < 0 {
		return nil
	}

	return c.hits[c.current].Route
}

// Param returns the path parameter of the current route's match.
func (c *Context) Param(name string) string {
	return c.Params().Value(name)
}

func (c *Context) Params() *kv.Storage {
	if c.current < 0 {
		return nil
	}

	return c.hits[c.current].Params
}

// OnContent sets the consumer of the request body. Pieces received before are delivered
// right away. Setting another consumer replaces the previous one.
func (c *Context) OnContent(fn func([]byte)) {
	c.bodyMu.Lock()
	c.onContent = fn
	c.drain()
}

// OnContentComplete registers a callback called once the whole body is received. If it
// already is, the callback is called immediately.
func (c *Context) OnContentComplete(fn func(*http.Request)) {
	c.bodyMu.Lock()
	c.onContentComplete = append(c.onContentComplete, fn)
	c.drain()
}

// OnMessageComplete registers a callback called once both the request is received and the
// response is sent. If that already happened, the callback is called immediately.
func (c *Context) OnMessageComplete(fn func(*http.Request)) {
	c.bodyMu.Lock()
	c.onMessageComplete = append(c.onMessageComplete, fn)
	c.drain()
}

// DeliverContent feeds a piece of the request body. The piece is copied.
func (c *Context) DeliverContent(piece []byte) {
	if len(piece) == 0 {
		return
	}

	c.bodyMu.Lock()
	c.pending = append(c.pending, append([]byte(nil), piece...))
	c.drain()
}

func (c *Context) DeliverContentComplete() {
	c.bodyMu.Lock()
	c.contentDone = true
	c.drain()
}

func (c *Context) DeliverMessageComplete() {
	c.bodyMu.Lock()
	c.contentDone = true
	c.messageDone = true
	c.drain()
}

// drain runs due callbacks one by one outside the lock. Only one goroutine drains at a
// time, so the order is kept even if callbacks register further callbacks. Must be called
// with bodyMu held, releases it.
func (c *Context) drain() {
	if c.draining {
		c.bodyMu.Unlock()
		return
	}

	c.draining = true

	for {
		var run func()

		switch {
		case c.onContent != nil && len(c.pending) > 0:
			piece, fn := c.pending[0], c.onContent
			c.pending[0] = nil
			c.pending = c.pending[1:]
			run = func() { fn(piece) }
		case c.contentDone && (c.onContent == nil || len(c.pending) == 0) && len(c.onContentComplete) > 0:
			fns := c.onContentComplete
			c.onContentComplete = nil
			run = c.callAll(fns)
		case c.messageDone && len(c.onContentComplete) == 0 && len(c.onMessageComplete) > 0:
			fns := c.onMessageComplete
			c.onMessageComplete = nil
			run = c.callAll(fns)
		default:
			c.draining = false
			c.bodyMu.Unlock()
			return
		}

		c.bodyMu.Unlock()
		run()
		c.bodyMu.Lock()
	}
}

func (c *Context) callAll(fns []func(*http.Request)) func() {
	return func() {
		for _, fn := range fns {
			fn(c.ex.Request)
		}
	}
}

// Get returns the request-scoped attribute.
func (c *Context) Get(key string) (attr.Value, bool) {
	return c.attrs.Get(key)
}

func (c *Context) Put(key string, value attr.Value) {
	c.attrs.Put(key, value)
}

func (c *Context) Remove(key string) {
	c.attrs.Remove(key)
}

// Attributes iterates over a snapshot of the request-scoped attributes.
func (c *Context) Attributes() iter.Seq2[string, attr.Value] {
	return c.attrs.All()
}

// Release discards the attributes. It's called once the response stream is closed.
func (c *Context) Release() {
	c.attrs.Clear()
}

func (c *Context) SetStatus(code status.Code) *Context {
	c.ex.Response.Code = code
	return c
}

func (c *Context) SetHeader(key, value string) *Context {
	c.ex.Response.Headers.Set(key, value)
	return c
}

func (c *Context) AddHeader(key, value string) *Context {
	c.ex.Response.Headers.Add(key, value)
	return c
}

// Write writes a piece of the response body, committing the response if it isn't yet.
func (c *Context) Write(p []byte) (int, error) {
	return c.ex.Stream.Write(p)
}

func (c *Context) WriteString(s string) (int, error) {
	return c.ex.Stream.Write([]byte(s))
}

// End completes the response.
func (c *Context) End(bufs ...[]byte) error {
	if len(bufs) == 0 {
		return c.ex.Stream.Close()
	}

	return c.ex.Stream.WriteAndClose(bufs...)
}

func (c *Context) EndString(s string) error {
	return c.ex.Stream.WriteAndClose([]byte(s))
}

// JSON serializes the model and completes the response with it.
func (c *Context) JSON(model any) error {
	data, err := json.ConfigCompatibleWithStandardLibrary.Marshal(model)
	if err != nil {
		return err
	}

	c.SetHeader("Content-Type", mime.JSON)
	return c.ex.Stream.WriteAndClose(data)
}

// Error completes the response with the status of the error, if it's a status.HTTPError,
// or 500 Internal Server Error otherwise. If the response is already committed, the stream
// is just closed.
func (c *Context) Error(err error) error {
	if c.ex.Stream.Committed() {
		if closeErr := c.ex.Stream.Close(); closeErr != nil {
			return closeErr
		}

		return err
	}

	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = status.ErrInternalServerError.(status.HTTPError)
	}

	c.SetStatus(httpErr.Code).SetHeader("Content-Type", mime.Plain)
	return c.ex.Stream.WriteAndClose([]byte(httpErr.Message))
}

// Tunnel switches the connection into the tunnel mode. The response must be either
// 101 Switching Protocols or a successful response to CONNECT. The response is committed
// and completed, so no body can be written afterwards.
func (c *Context) Tunnel() (*conn.Tunnel, error) {
	code := c.ex.Response.Code
	upgradable := code == status.SwitchingProtocols ||
		(c.ex.Request.Method == method.CONNECT && code >= 200 && code < 300)
	if !upgradable || c.ex.Upgrade == nil {
		return nil, ErrNotUpgradable
	}

	if !c.ex.Stream.Committed() {
		if err := c.ex.Stream.Commit(); err != nil {
			return nil, err
		}
	}

	tunnel, err := c.ex.Upgrade()
	if err != nil {
		return nil, err
	}

	return tunnel, c.ex.Stream.Close()
}
