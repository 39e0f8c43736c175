package transport

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/internal/timer"
)

var sessionID atomic.Uint64

type entry struct {
	data []byte
	bufs [][]byte
	file *FileRegion
	fn   func() error
	done func(error)
}

// NetSession is the Session over a net.Conn.
type NetSession struct {
	id   uint64
	conn net.Conn
	cfg  config.NET

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []entry
	closing bool
	dead    bool
	err     error
}

// NewSession wraps the connection. Serve must be called in order to start processing.
func NewSession(conn net.Conn, cfg config.NET) *NetSession {
	s := &NetSession{
		id:   sessionID.Add(1),
		conn: conn,
		cfg:  cfg,
	}
	s.cond = sync.NewCond(&s.mu)

	return s
}

func (s *NetSession) ID() uint64 {
	return s.id
}

func (s *NetSession) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *NetSession) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *NetSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.closing
}

func (s *NetSession) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cond.Broadcast()

	return nil
}

func (s *NetSession) Encode(bufs ...[]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrClosed
	}

	if n := len(s.queue); n > 0 && s.queue[n-1].data != nil {
		last := &s.queue[n-1]
		for _, buf := range bufs {
			last.data = append(last.data, buf...)
		}

		return nil
	}

	var data []byte
	for _, buf := range bufs {
		data = append(data, buf...)
	}

	if len(data) == 0 {
		return nil
	}

	return s.push(entry{data: data})
}

func (s *NetSession) Write(buf []byte, done func(error)) {
	s.enqueue(entry{bufs: [][]byte{buf}, done: done})
}

func (s *NetSession) WriteBuffers(bufs [][]byte, done func(error)) {
	s.enqueue(entry{bufs: bufs, done: done})
}

func (s *NetSession) WriteFile(region FileRegion, done func(error)) {
	s.enqueue(entry{file: &region, done: done})
}

// run queues the function to be executed by the writer in order with the data.
func (s *NetSession) run(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return ErrClosed
	}

	return s.push(entry{fn: fn})
}

func (s *NetSession) enqueue(e entry) {
	s.mu.Lock()
	err := ErrClosed
	if !s.closing {
		err = s.push(e)
	}
	s.mu.Unlock()

	if err != nil && e.done != nil {
		e.done(err)
	}
}

// push must be called with the mutex held.
func (s *NetSession) push(e entry) error {
	if len(s.queue) >= s.cfg.WriteQueueSize {
		// the peer apparently doesn't read anything
		s.closing = true
		s.cond.Broadcast()
		return ErrClosed
	}

	s.queue = append(s.queue, e)
	s.cond.Signal()
	return nil
}

// Serve starts the writer and blocks reading the connection until the session is closed.
func (s *NetSession) Serve(receiver Receiver) {
	go s.writeLoop()

	buff := make([]byte, s.cfg.ReadBufferSize)
	for {
		if err := s.conn.SetReadDeadline(timer.Now().Add(s.cfg.ReadTimeout)); err != nil {
			s.terminate(err)
			break
		}

		n, err := s.conn.Read(buff)
		if n > 0 {
			receiver.Receive(buff[:n])
		}

		if err != nil {
			s.terminate(err)
			break
		}
	}

	receiver.Closed(s.cause())
}

func (s *NetSession) writeLoop() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closing && !s.dead {
			s.cond.Wait()
		}

		queue := s.queue
		s.queue = nil
		stop := s.dead || (s.closing && len(queue) == 0)
		s.mu.Unlock()

		if stop {
			fail(queue)
			s.terminate(nil)
			return
		}

		for i, e := range queue {
			err := s.flush(e)
			if e.done != nil {
				e.done(err)
			}

			if err != nil {
				fail(queue[i+1:])
				s.terminate(err)
				return
			}
		}
	}
}

func (s *NetSession) flush(e entry) error {
	if err := s.conn.SetWriteDeadline(timer.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}

	switch {
	case e.data != nil:
		_, err := s.conn.Write(e.data)
		return err
	case e.bufs != nil:
		bufs := net.Buffers(e.bufs)
		_, err := bufs.WriteTo(s.conn)
		return err
	case e.file != nil:
		section := io.NewSectionReader(e.file.File, e.file.Offset, e.file.Length)
		_, err := io.Copy(s.conn, section)
		return err
	case e.fn != nil:
		return e.fn()
	default:
		return nil
	}
}

// terminate closes the connection immediately. Only the first error is preserved.
func (s *NetSession) terminate(err error) {
	s.mu.Lock()
	if s.dead {
		s.mu.Unlock()
		return
	}

	s.dead = true
	if !s.closing {
		s.err = err
	}
	s.closing = true
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()

	s.cond.Broadcast()
	_ = s.conn.Close()
	fail(queue)
}

func (s *NetSession) cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the peer hanging up may surface as a closed pipe on the deadline update that
	// follows the last successful read
	if errors.Is(s.err, io.EOF) || errors.Is(s.err, net.ErrClosed) || errors.Is(s.err, io.ErrClosedPipe) {
		return nil
	}

	return s.err
}

func fail(queue []entry) {
	for _, e := range queue {
		if e.done != nil {
			e.done(ErrClosed)
		}
	}
}

type tlsSession struct {
	conn    *tls.Conn
	session *NetSession
	open    atomic.Bool
}

// NewTLSSession returns the encryption layer of the session running over the conn.
func NewTLSSession(conn *tls.Conn, session *NetSession) TLSSession {
	t := &tlsSession{
		conn:    conn,
		session: session,
	}
	t.open.Store(true)

	return t
}

func (t *tlsSession) IsOpen() bool {
	return t.open.Load() && t.session.IsOpen()
}

func (t *tlsSession) Close() error {
	if !t.open.Swap(false) {
		return nil
	}

	if err := t.session.run(t.conn.CloseWrite); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}

	return nil
}

func (t *tlsSession) ConnectionState() tls.ConnectionState {
	return t.conn.ConnectionState()
}
