package transport

import (
	"crypto/tls"
	"errors"
	"net"
	"os"
)

var ErrClosed = errors.New("transport session is closed")

// FileRegion describes a part of a file to be transmitted as is.
type FileRegion struct {
	File   *os.File
	Offset int64
	Length int64
}

// Session is a single transport-level connection. Every write is queued and performed by
// a dedicated goroutine, so none of the methods blocks on the network.
type Session interface {
	ID() uint64
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	IsOpen() bool
	// Close closes the session once all the queued writes are flushed. It's idempotent.
	Close() error
	// Encode copies the buffers and queues them for transmission.
	Encode(bufs ...[]byte) error
	// Write queues the buffer without copying it. The buffer must stay intact until
	// done is called.
	Write(buf []byte, done func(error))
	WriteBuffers(bufs [][]byte, done func(error))
	WriteFile(region FileRegion, done func(error))
}

// TLSSession is the encryption layer on top of the Session.
type TLSSession interface {
	IsOpen() bool
	// Close sends the close_notify alert after all the data queued before.
	Close() error
	ConnectionState() tls.ConnectionState
}

// Receiver consumes the inbound data of the session. Passed slices are only valid
// until Receive returns.
type Receiver interface {
	Receive(data []byte)
	// Closed is called exactly once, when the session is closed for whatever reason. The err
	// is nil if the session was closed voluntarily or by the peer.
	Closed(err error)
}

// Handler binds a newly established session to its receiver. tlsSession is nil for
// plain connections.
type Handler func(session Session, tlsSession TLSSession) Receiver
