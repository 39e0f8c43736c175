package conn

import (
	"sync"

	"github.com/indigo-web/ember/transport"
)

// Tunnel is a connection which bypasses HTTP framing entirely. It's obtained by upgrading
// the HTTP connection, e.g. after answering CONNECT or 101 Switching Protocols.
type Tunnel struct {
	*Base

	mu        sync.Mutex
	onReceive func([]byte)
	onClose   []func(error)
	pending   []byte
	draining  bool
	closed    bool
	cause     error
}

// NewTunnel takes over the sessions and the attachment of the connection.
func NewTunnel(from *Base) *Tunnel {
	return &Tunnel{Base: from}
}

func (t *Tunnel) IsTunnel() bool {
	return true
}

func (t *Tunnel) Write(buf []byte, done func(error)) {
	t.session.Write(buf, done)
}

func (t *Tunnel) WriteBuffers(bufs [][]byte, done func(error)) {
	t.session.WriteBuffers(bufs, done)
}

func (t *Tunnel) WriteFile(region transport.FileRegion, done func(error)) {
	t.session.WriteFile(region, done)
}

// OnReceive sets the consumer of the inbound data. Data received before it's set is
// kept and passed on the first call. The slice passed to the callback is only valid until
// the callback returns.
func (t *Tunnel) OnReceive(fn func([]byte)) {
	t.mu.Lock()
	t.onReceive = fn
	if fn == nil || t.draining {
		t.mu.Unlock()
		return
	}

	t.draining = true
	t.mu.Unlock()
	t.drain()
}

// OnClose registers a callback called when the underlying session is closed. If it's
// already closed, the callback is called immediately.
func (t *Tunnel) OnClose(fn func(err error)) {
	t.mu.Lock()
	if t.closed {
		cause := t.cause
		t.mu.Unlock()
		fn(cause)
		return
	}

	t.onClose = append(t.onClose, fn)
	t.mu.Unlock()
}

// Receive passes the inbound data to the consumer. While the consumer is busy with
// earlier data, the new one is queued behind it.
func (t *Tunnel) Receive(data []byte) {
	t.mu.Lock()
	fn := t.onReceive
	if fn == nil || t.draining {
		t.pending = append(t.pending, data...)
		t.mu.Unlock()
		return
	}

	t.draining = true
	t.mu.Unlock()

	fn(data)
	t.drain()
}

// drain delivers the queued data until there's none left. Only the goroutine that set
// the draining flag may call it.
func (t *Tunnel) drain() {
	for {
		t.mu.Lock()
		fn := t.onReceive
		if fn == nil || len(t.pending) == 0 {
			t.draining = false
			t.mu.Unlock()
			return
		}

		data := t.pending
		t.pending = nil
		t.mu.Unlock()

		fn(data)
	}
}

// Closed notifies the tunnel that the underlying session is gone.
func (t *Tunnel) Closed(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.closed, t.cause = true, err
	callbacks := t.onClose
	t.onClose = nil
	t.mu.Unlock()

	_ = t.Close()
	for _, fn := range callbacks {
		fn(err)
	}
}
