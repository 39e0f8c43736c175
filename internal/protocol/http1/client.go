package http1

import (
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/transport"
)

type requestHooks struct {
	session  transport.Session
	gen      *Generator
	info     Info
	complete func(Outcome)
}

// NewRequestStream returns the stream writing the request over the session. The request
// head is generated on commit, so the request must be filled beforehand. The complete
// callback may be nil.
func NewRequestStream(session transport.Session, request *http.Request, complete func(Outcome)) *OutputStream {
	return NewOutputStream(&requestHooks{
		session:  session,
		gen:      NewGenerator(),
		info:     Info{Request: request},
		complete: complete,
	})
}

func (r *requestHooks) Session() transport.Session {
	return r.session
}

func (r *requestHooks) Generator() *Generator {
	return r.gen
}

func (r *requestHooks) Info() *Info {
	return &r.info
}

func (r *requestHooks) HeaderBuffer() []byte {
	return nil
}

func (r *requestHooks) Complete(outcome Outcome) {
	if r.complete != nil {
		r.complete(outcome)
	}
}
