package http1

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/conn"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/metrics"
	"github.com/indigo-web/ember/internal/timer"
	"github.com/indigo-web/ember/router"
	"github.com/indigo-web/ember/transport"
)

var ErrAlreadyTunneled = errors.New("http1: connection is already a tunnel")

var continueResponse = []byte("HTTP/1.1 100 Continue\r\n\r\n")

type connState uint8

const (
	// stateHead awaits the request head.
	stateHead connState = iota
	// stateBody reads the request body.
	stateBody
	// stateWaitResponse holds inbound bytes until the response is complete.
	stateWaitResponse
	// stateTunnel forwards everything to the tunnel.
	stateTunnel
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateHead:
		return "head"
	case stateBody:
		return "body"
	case stateWaitResponse:
		return "wait-response"
	case stateTunnel:
		return "tunnel"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServerConnection serves HTTP/1.x requests arriving at a single transport session.
// Requests are served one at a time: bytes of pipelined requests are kept until the
// response to the current one is complete.
type ServerConnection struct {
	mu      sync.Mutex
	state   connState
	buff    []byte
	pending []byte
	cfg     *config.Config
	manager *router.Manager
	base    *conn.Base
	logger  *slog.Logger
	parser  *Parser
	body    bodyReader
	gen     *Generator
	header  []byte
	request *http.Request
	ex      *exchange
	tunnel  atomic.Pointer[conn.Tunnel]
}

func NewServerConnection(
	cfg *config.Config, manager *router.Manager, base *conn.Base, logger *slog.Logger,
) *ServerConnection {
	if logger == nil {
		logger = slog.Default()
	}

	request := newRequest(base)
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()

	return &ServerConnection{
		cfg:     cfg,
		manager: manager,
		base:    base,
		logger:  logger.With("session", base.ID()),
		parser:  NewParser(cfg.HTTP, request),
		gen:     NewGenerator(),
		header:  make([]byte, 0, cfg.HTTP.HeaderBufferSize),
		request: request,
	}
}

// NewHandler returns the transport handler serving every session as an HTTP/1.x connection.
func NewHandler(cfg *config.Config, manager *router.Manager, logger *slog.Logger) transport.Handler {
	return func(session transport.Session, tlsSession transport.TLSSession) transport.Receiver {
		base := conn.New(session, tlsSession, proto.HTTP11)
		return NewServerConnection(cfg, manager, base, logger)
	}
}

// Connection returns the underlying connection.
func (c *ServerConnection) Connection() conn.Connection {
	if tunnel := c.tunnel.Load(); tunnel != nil {
		return tunnel
	}

	return c.base
}

func (c *ServerConnection) Receive(data []byte) {
	c.mu.Lock()

	switch c.state {
	case stateClosed:
		c.mu.Unlock()
		return
	case stateTunnel:
		c.mu.Unlock()
		c.tunnel.Load().Receive(data)
		return
	}

	if len(c.pending) == 0 {
		c.pending = data
		c.process()
		// the data is valid only until Receive returns
		c.pending = append(c.buff[:0], c.pending...)
		c.buff = c.pending
	} else {
		c.pending = append(c.pending, data...)
		c.process()
		c.compact()
	}

	c.mu.Unlock()
}

func (c *ServerConnection) Closed(err error) {
	c.mu.Lock()
	state := c.state
	c.state = stateClosed
	ex := c.ex
	c.ex = nil
	c.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	c.logger.Debug("connection closed", "state", state, "error", err)

	if ex != nil {
		ex.ctx.Release()
	}

	if tunnel := c.tunnel.Load(); tunnel != nil {
		tunnel.Closed(err)
		return
	}

	_ = c.base.Close()
}

// process consumes pending bytes as far as the state allows. Must be called with the
// mutex held.
func (c *ServerConnection) process() {
	for len(c.pending) > 0 {
		switch c.state {
		case stateHead:
			done, extra, err := c.parser.Parse(c.pending)
			if err != nil {
				c.reject(err)
				return
			}

			c.pending = extra
			if !done {
				return
			}

			c.dispatch()
		case stateBody:
			piece, extra, done, err := c.body.Read(c.pending)
			if err != nil {
				c.reject(err)
				return
			}

			c.pending = extra
			if len(piece) > 0 {
				c.ex.ctx.DeliverContent(piece)
			}

			if done {
				c.bodyDone()
			}
		case stateTunnel:
			data := c.pending
			c.pending = nil
			c.tunnel.Load().Receive(data)
		default:
			return
		}
	}
}

func (c *ServerConnection) compact() {
	c.buff = append(c.buff[:0], c.pending...)
	c.pending = c.buff
}

func (c *ServerConnection) dispatch() {
	request := c.request
	ex := c.newExchange(request)
	c.ex = ex
	c.state = stateBody
	c.body.Reset(request, c.cfg.HTTP.MaxBodySize)

	ex.hits = c.manager.Find(router.QueryFor(request))
	ex.ctx = router.NewContext(ex.exchange(), ex.hits)
	logger := c.logger.With("request_id", ex.ctx.ID())

	if c.body.Done() {
		ex.ctx.DeliverContentComplete()
		c.state = stateWaitResponse
	} else if request.Protocol == proto.HTTP11 && request.Headers.Value("expect") == "100-continue" {
		if err := c.base.Session().Encode(continueResponse); err != nil {
			logger.Debug("failed to write 100 Continue", "error", err)
		}
	}

	if len(ex.hits) == 0 {
		metrics.RequestsTotal.WithLabelValues(metrics.NotFound).Inc()
		logger.Debug("no route matched", "method", request.Method, "path", request.Path)
		c.manager.NotFound()(ex.ctx)
	} else {
		metrics.RequestsTotal.WithLabelValues(metrics.Routed).Inc()
		logger.Debug("dispatching request", "method", request.Method, "path", request.Path, "routes", len(ex.hits))
		ex.ctx.Next()
	}

	c.advance()
}

func (c *ServerConnection) bodyDone() {
	c.ex.ctx.DeliverContentComplete()
	c.state = stateWaitResponse
	c.advance()
}

// advance moves on to the next request once both the request is read and the response
// is complete. It's idempotent. Must be called with the mutex held.
func (c *ServerConnection) advance() {
	ex := c.ex
	if c.state != stateWaitResponse || ex == nil || !ex.completed.Load() {
		return
	}

	c.ex = nil
	ex.ctx.DeliverMessageComplete()
	ex.ctx.Release()

	if err := ex.outcome.Err; err != nil {
		if errors.Is(err, ErrFraming) {
			metrics.FramingErrorsTotal.Inc()
		}

		c.logger.Error("response failed", "request_id", ex.ctx.ID(), "error", err)
		c.shutdown()
		return
	}

	if tunnel := c.tunnel.Load(); tunnel != nil {
		metrics.TunnelUpgradesTotal.Inc()
		c.logger.Info("connection switched to tunnel", "request_id", ex.ctx.ID())
		c.state = stateTunnel
		return
	}

	if !c.gen.Persistent() {
		c.state = stateClosed
		_ = c.base.Close()
		return
	}

	c.request = newRequest(c.base)
	c.parser.Reset(c.request)
	c.gen.Reset()
	c.state = stateHead
}

// resume continues processing after the response of the exchange completed outside
// of the Receive call.
func (c *ServerConnection) resume(ex *exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ex != ex {
		return
	}

	c.advance()
	c.process()
	c.compact()
}

// reject answers the malformed request with the corresponding status and closes the
// connection. Must be called with the mutex held.
func (c *ServerConnection) reject(err error) {
	metrics.RequestsTotal.WithLabelValues(metrics.BadRequest).Inc()
	c.logger.Debug("rejecting request", "error", err)

	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = status.ErrBadRequest.(status.HTTPError)
	}

	ex := c.ex
	c.ex = nil
	c.state = stateClosed
	c.pending = nil

	if ex != nil {
		if !ex.stream.Committed() {
			ex.response.Headers.Set("Connection", "close")
			_ = ex.ctx.Error(httpErr)
		}

		ex.ctx.Release()
		_ = c.base.Close()
		return
	}

	response := http.NewResponse()
	response.Code = httpErr.Code
	response.Headers.
		Set("Content-Type", "text/plain").
		Set("Connection", "close")

	ex = &exchange{c: c, response: response}
	ex.info = Info{Response: response}
	ex.stream = NewOutputStream(ex)
	c.gen.Reset()
	_ = ex.stream.WriteAndClose([]byte(httpErr.Message))
	_ = c.base.Close()
}

// shutdown closes the connection immediately, discarding whatever is pending.
func (c *ServerConnection) shutdown() {
	c.state = stateClosed
	c.pending = nil
	_ = c.base.Close()
}

func (c *ServerConnection) newExchange(request *http.Request) *exchange {
	response := http.NewResponse()
	response.Protocol = request.Protocol
	for key, value := range c.cfg.Headers.Default {
		response.Headers.Add(key, value)
	}

	if c.cfg.Headers.Date && !response.Headers.Has("Date") {
		response.Headers.Add("Date", timer.Date())
	}

	ex := &exchange{
		c:        c,
		request:  request,
		response: response,
		info:     Info{Request: request, Response: response},
	}
	ex.stream = NewOutputStream(ex)

	return ex
}

func newRequest(base *conn.Base) *http.Request {
	request := http.NewRequest()
	request.Remote = base.RemoteAddr()

	return request
}

// exchange is a single request along with its response.
type exchange struct {
	c         *ServerConnection
	request   *http.Request
	response  *http.Response
	info      Info
	stream    *OutputStream
	hits      []router.Hit
	ctx       *router.Context
	outcome   Outcome
	completed atomic.Bool
}

func (e *exchange) exchange() router.Exchange {
	return router.Exchange{
		Request:    e.request,
		Response:   e.response,
		Stream:     e.stream,
		Connection: e.c.base,
		Upgrade:    e.upgrade,
	}
}

func (e *exchange) upgrade() (*conn.Tunnel, error) {
	tunnel := conn.NewTunnel(e.c.base)
	if !e.c.tunnel.CompareAndSwap(nil, tunnel) {
		return nil, ErrAlreadyTunneled
	}

	return tunnel, nil
}

func (e *exchange) Session() transport.Session {
	return e.c.base.Session()
}

func (e *exchange) Generator() *Generator {
	return e.c.gen
}

func (e *exchange) Info() *Info {
	return &e.info
}

func (e *exchange) HeaderBuffer() []byte {
	return e.c.header[:0]
}

// Complete is called by the output stream with its mutex held, which might happen
// during the Receive call, so the connection is resumed by a separate goroutine.
func (e *exchange) Complete(outcome Outcome) {
	e.outcome = outcome
	e.completed.Store(true)

	if e.request != nil {
		go e.c.resume(e)
	}
}
