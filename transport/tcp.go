package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/internal/timer"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type TCP struct {
	l        listener
	wg       *sync.WaitGroup
	stop     *atomic.Bool
	sessions *sync.Map
}

func NewTCP() *TCP {
	tcp := newTCP(nil)
	return &tcp
}

func newTCP(l listener) TCP {
	return TCP{
		l:        l,
		wg:       new(sync.WaitGroup),
		stop:     new(atomic.Bool),
		sessions: new(sync.Map),
	}
}

func bindTCP(addr string) (*net.TCPListener, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = bindTCP(addr)
	return err
}

// Addr returns the bound address. Useful when bound to a random port.
func (t *TCP) Addr() net.Addr {
	if t.l == nil {
		return nil
	}

	return t.l.Addr()
}

func (t *TCP) Listen(cfg config.NET, handler Handler) error {
	for !t.stop.Load() {
		err := t.l.SetDeadline(timer.Now().Add(cfg.AcceptLoopInterruptPeriod))
		if err != nil {
			return err
		}

		conn, err := t.l.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			if t.stop.Load() && errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		t.wg.Add(1)
		go func(conn net.Conn) {
			defer t.wg.Done()
			t.serve(cfg, conn, handler)
		}(conn)
	}

	return nil
}

func (t *TCP) serve(cfg config.NET, conn net.Conn, handler Handler) {
	var tlsConn *tls.Conn
	if tc, ok := conn.(*tls.Conn); ok {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout)
		err := tc.HandshakeContext(ctx)
		cancel()
		if err != nil {
			_ = conn.Close()
			return
		}

		tlsConn = tc
	}

	session := NewSession(conn, cfg)
	var tlsSession TLSSession
	if tlsConn != nil {
		tlsSession = NewTLSSession(tlsConn, session)
	}

	receiver := handler(session, tlsSession)
	if receiver == nil {
		_ = conn.Close()
		return
	}

	t.sessions.Store(session.ID(), session)
	session.Serve(receiver)
	t.sessions.Delete(session.ID())
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

// Close closes the listener and all the sessions. Queued writes are flushed first.
func (t *TCP) Close() {
	if t.l != nil {
		_ = t.l.Close()
	}

	t.sessions.Range(func(_, value any) bool {
		_ = value.(*NetSession).Close()
		return true
	})
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
