package http1

import "errors"

var (
	// ErrFraming reports a violation of the message framing, e.g. writing more than the
	// declared content length or an unexpected generator result. It's never retried.
	ErrFraming   = errors.New("http1: framing error")
	ErrCommitted = errors.New("http1: message is already committed")
	ErrClosed    = errors.New("http1: output stream is closed")
)
