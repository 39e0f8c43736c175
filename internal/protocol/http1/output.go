package http1

import (
	"fmt"
	"sync"

	"github.com/indigo-web/ember/transport"
)

// Outcome is the completion of a message: either success, or failure with the reason.
type Outcome struct {
	Err error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// StreamHooks is everything the OutputStream needs from the connection it belongs to.
type StreamHooks interface {
	// Session is the target generated frames are encoded onto.
	Session() transport.Session
	Generator() *Generator
	// Info returns the metadata of the message to be generated.
	Info() *Info
	// HeaderBuffer returns an empty buffer to generate the head into.
	HeaderBuffer() []byte
	// Complete is called exactly once when the message is either complete or failed.
	Complete(outcome Outcome)
}

type streamState uint8

const (
	streamIdle streamState = iota
	streamCommitted
	streamCompleting
	streamClosed
)

// OutputStream writes a single HTTP/1.x message body, framing it as required.
type OutputStream struct {
	mu    sync.Mutex
	hooks StreamHooks
	state streamState
	chunk []byte
}

func NewOutputStream(hooks StreamHooks) *OutputStream {
	return &OutputStream{hooks: hooks}
}

// Commit generates and writes the head. It can be done only once.
func (o *OutputStream) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case streamIdle:
	case streamClosed:
		return ErrClosed
	default:
		return ErrCommitted
	}

	o.state = streamCommitted
	return o.generate(nil, false)
}

// Write writes the body piece. Writing into a not committed stream commits it, so the
// length of the body is unknown and, for HTTP/1.1, it's chunked.
func (o *OutputStream) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case streamClosed:
		return 0, ErrClosed
	case streamIdle:
		o.state = streamCommitted
	default:
		if len(p) == 0 {
			return 0, nil
		}
	}

	if err := o.generate(p, false); err != nil {
		return 0, err
	}

	return len(p), nil
}

// WriteAndClose writes the buffers and closes the stream. If the stream isn't committed yet,
// the content length is set to the total length of the buffers.
func (o *OutputStream) WriteAndClose(bufs ...[]byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case streamClosed:
		return ErrClosed
	case streamIdle:
		info := o.hooks.Info()
		if info == nil {
			return o.fail(fmt.Errorf("%w: no message info", ErrFraming))
		}

		var total int64
		for _, buf := range bufs {
			total += int64(len(buf))
		}

		info.setContentLength(total)
		o.state = streamCommitted
		if total == 0 {
			break
		}

		if err := o.generate(nil, false); err != nil {
			return err
		}
	}

	for _, buf := range bufs {
		if len(buf) == 0 {
			continue
		}

		if err := o.generate(buf, false); err != nil {
			return err
		}
	}

	return o.close()
}

// Close completes the message. A never committed stream produces an empty message with
// zero content length. Repeated calls are no-ops.
func (o *OutputStream) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == streamClosed {
		return nil
	}

	return o.close()
}

func (o *OutputStream) close() error {
	o.state = streamCompleting
	if err := o.generate(nil, true); err != nil {
		return err
	}

	o.state = streamClosed
	o.hooks.Complete(Outcome{})

	return nil
}

// Committed reports whether the head was already generated.
func (o *OutputStream) Committed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state != streamIdle
}

func (o *OutputStream) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state == streamClosed
}

// generate drives the generator until it has nothing to do. Must be called with the
// mutex held.
func (o *OutputStream) generate(content []byte, last bool) error {
	var (
		gen    = o.hooks.Generator()
		info   *Info
		header []byte
	)

	for {
		result, err := gen.Generate(info, header, o.chunk, content, last)
		if err != nil {
			return o.fail(err)
		}

		state := gen.State()
		if !expected(result, state) {
			return o.fail(fmt.Errorf("%w: unexpected %s in %s state", ErrFraming, result, state))
		}

		switch result {
		case NeedInfo:
			if info != nil {
				return o.fail(fmt.Errorf("%w: %s after the info is supplied", ErrFraming, result))
			}

			if info = o.hooks.Info(); info == nil {
				return o.fail(fmt.Errorf("%w: no message info", ErrFraming))
			}
		case NeedHeader:
			if header != nil {
				return o.fail(fmt.Errorf("%w: %s after the header is supplied", ErrFraming, result))
			}

			header = o.hooks.HeaderBuffer()
			if header == nil {
				header = make([]byte, 0, 512)
			}
		case NeedChunk:
			if o.chunk != nil {
				return o.fail(fmt.Errorf("%w: %s after the chunk is supplied", ErrFraming, result))
			}

			o.chunk = make([]byte, 0, ChunkHeaderSize)
		case Flush:
			if err = o.hooks.Session().Encode(gen.Frame()...); err != nil {
				return o.fail(err)
			}

			content, header = nil, nil
		case Continue:
		case Done:
			return nil
		}
	}
}

func expected(result Result, state State) bool {
	switch result {
	case NeedInfo, NeedHeader:
		return state == StateStart
	case NeedChunk:
		return state == StateCommitted || state == StateCompleting
	case Flush:
		return state != StateStart
	case Continue:
		return state == StateCompleting
	case Done:
		return state == StateCommitted || state == StateEnd
	default:
		return false
	}
}

// fail forces the stream closed and reports the failure. Must be called with the
// mutex held.
func (o *OutputStream) fail(err error) error {
	if o.state == streamClosed {
		return err
	}

	o.state = streamClosed
	o.hooks.Complete(Outcome{Err: err})

	return err
}
