package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/indigo-web/ember/config"
)

type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, handler Handler) error
	Stop()
	Close()
	Wait()
}

// ListenerError is a failure of a single transport, either on binding or while serving.
type ListenerError struct {
	Addr string
	Err  error
}

func (l *ListenerError) Error() string {
	return "listener " + l.Addr + ": " + l.Err.Error()
}

func (l *ListenerError) Unwrap() error {
	return l.Err
}

// Supervisor runs multiple transports at once. Whenever any of them stops, all others
// are stopped too.
type Supervisor struct {
	ts       []boundTransport
	stopOnce sync.Once
}

func NewSupervisor() *Supervisor {
	return new(Supervisor)
}

// Add binds the transport. On failure, all the transports bound so far are closed.
func (s *Supervisor) Add(addr string, transport Transport, handler Handler) error {
	if err := transport.Bind(addr); err != nil {
		s.close()
		return &ListenerError{Addr: addr, Err: err}
	}

	s.ts = append(s.ts, boundTransport{
		addr:    addr,
		handler: handler,
		t:       transport,
	})

	return nil
}

// Run serves all the transports until either the context is done or any of them returns.
// Every transport is then stopped, closed and waited for. The returned error joins the
// failures of all the transports, each wrapped into ListenerError.
func (s *Supervisor) Run(ctx context.Context, cfg config.NET) error {
	if len(s.ts) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(s.ts))

	for i, t := range s.ts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()

			if err := t.t.Listen(cfg, t.handler); err != nil {
				errs[i] = &ListenerError{Addr: t.addr, Err: err}
			}
		}()
	}

	<-ctx.Done()
	s.stop()
	wg.Wait()

	return errors.Join(errs...)
}

func (s *Supervisor) stop() {
	s.stopOnce.Do(func() {
		for _, t := range s.ts {
			t.t.Stop()
		}

		for _, t := range s.ts {
			t.t.Close()
			t.t.Wait()
		}
	})
}

func (s *Supervisor) close() {
	for _, t := range s.ts {
		t.t.Close()
	}
}

type boundTransport struct {
	addr    string
	handler Handler
	t       Transport
}
