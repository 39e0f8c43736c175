package conn

import (
	"errors"
	"net"
	"sync"

	"github.com/indigo-web/ember/attr"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/transport"
)

// Connection is an HTTP connection on top of the transport session and, if the connection
// is encrypted, the TLS session.
type Connection interface {
	ID() uint64
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	IsOpen() bool
	// Close closes the TLS session first, then the transport session, and finally drops
	// the attachment. Repeated calls are no-ops.
	Close() error
	IsEncrypted() bool
	IsTunnel() bool
	Protocol() proto.Protocol
	// Attachment is a store for arbitrary values living as long as the connection does.
	Attachment() *attr.Store
}

type Base struct {
	session    transport.Session
	tlsSession transport.TLSSession
	protocol   proto.Protocol
	attachment *attr.Store
	closeOnce  sync.Once
	closeErr   error
}

// New returns a plain HTTP connection. The tlsSession may be nil.
func New(session transport.Session, tlsSession transport.TLSSession, protocol proto.Protocol) *Base {
	return &Base{
		session:    session,
		tlsSession: tlsSession,
		protocol:   protocol,
		attachment: new(attr.Store),
	}
}

func (b *Base) ID() uint64 {
	return b.session.ID()
}

func (b *Base) LocalAddr() net.Addr {
	return b.session.LocalAddr()
}

func (b *Base) RemoteAddr() net.Addr {
	return b.session.RemoteAddr()
}

func (b *Base) IsOpen() bool {
	return b.session.IsOpen()
}

func (b *Base) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if b.tlsSession != nil && b.tlsSession.IsOpen() {
			errs = append(errs, b.tlsSession.Close())
		}

		if b.session.IsOpen() {
			errs = append(errs, b.session.Close())
		}

		b.attachment.Clear()
		b.closeErr = errors.Join(errs...)
	})

	return b.closeErr
}

func (b *Base) IsEncrypted() bool {
	return b.tlsSession != nil
}

func (b *Base) IsTunnel() bool {
	return false
}

func (b *Base) Protocol() proto.Protocol {
	return b.protocol
}

func (b *Base) Attachment() *attr.Store {
	return b.attachment
}

// Session exposes the underlying transport session.
func (b *Base) Session() transport.Session {
	return b.session
}

// TLSSession exposes the encryption layer, if any.
func (b *Base) TLSSession() transport.TLSSession {
	return b.tlsSession
}
