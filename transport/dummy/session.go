package dummy

import (
	"crypto/tls"
	"io"
	"net"
	"sync"

	"github.com/indigo-web/ember/transport"
)

// Session is a transport.Session recording everything written into it. Writes are
// completed synchronously.
type Session struct {
	mu      sync.Mutex
	data    []byte
	closed  bool
	failing bool
	closes  int
	id      uint64
}

func NewSession() *Session {
	return &Session{id: 1}
}

// Failing makes every write fail as if the peer was gone.
func (s *Session) Failing() *Session {
	s.failing = true
	return s
}

func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}
}

func (s *Session) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4242}
}

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.closed
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.closes++
	s.mu.Unlock()

	return nil
}

// Closes returns how many times Close was called.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes
}

func (s *Session) Encode(bufs ...[]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.failing {
		return transport.ErrClosed
	}

	for _, buf := range bufs {
		s.data = append(s.data, buf...)
	}

	return nil
}

func (s *Session) Write(buf []byte, done func(error)) {
	s.WriteBuffers([][]byte{buf}, done)
}

func (s *Session) WriteBuffers(bufs [][]byte, done func(error)) {
	err := s.Encode(bufs...)
	if done != nil {
		done(err)
	}
}

func (s *Session) WriteFile(region transport.FileRegion, done func(error)) {
	data, err := io.ReadAll(io.NewSectionReader(region.File, region.Offset, region.Length))
	if err == nil {
		err = s.Encode(data)
	}

	if done != nil {
		done(err)
	}
}

// Written returns a copy of everything written so far.
func (s *Session) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte(nil), s.data...)
}

// Flush returns everything written so far and forgets it.
func (s *Session) Flush() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.data
	s.data = nil

	return data
}

// TLSSession is a transport.TLSSession doing nothing but tracking its state.
type TLSSession struct {
	mu     sync.Mutex
	closed bool
	// OnClose is called on the first Close, if set.
	OnClose func()
}

func NewTLSSession() *TLSSession {
	return new(TLSSession)
}

func (t *TLSSession) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.closed
}

func (t *TLSSession) Close() error {
	t.mu.Lock()
	first := !t.closed
	t.closed = true
	t.mu.Unlock()

	if first && t.OnClose != nil {
		t.OnClose()
	}

	return nil
}

func (t *TLSSession) ConnectionState() tls.ConnectionState {
	return tls.ConnectionState{HandshakeComplete: true, Version: tls.VersionTLS13}
}
