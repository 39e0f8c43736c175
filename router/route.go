package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/mime"
)

var (
	ErrNoDimensions = errors.New("router: route declares no dimension to match by")
	ErrNoHandlers   = errors.New("router: route has no handlers")
	ErrBadPattern   = errors.New("router: malformed pattern")
)

type Handler func(ctx *Context)

// Route is an immutable registered route. Routes are ordered by their ID, which is
// assigned in the order of registration.
type Route struct {
	id       int
	dims     Dimensions
	methods  []string
	path     string
	consumes []mime.MIME
	produces []mime.MIME
	handlers []Handler
}

func (r *Route) ID() int {
	return r.id
}

// Dimensions returns the set of dimensions a request must match by in order for
// the route to match.
func (r *Route) Dimensions() Dimensions {
	return r.dims
}

func (r *Route) Handlers() []Handler {
	return r.handlers
}

func (r *Route) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d", r.id)
	if len(r.methods) > 0 {
		b.WriteString(" " + strings.Join(r.methods, ","))
	}

	if len(r.path) > 0 {
		b.WriteString(" " + r.path)
	}

	if len(r.consumes) > 0 {
		b.WriteString(" consumes=" + strings.Join(r.consumes, ","))
	}

	if len(r.produces) > 0 {
		b.WriteString(" produces=" + strings.Join(r.produces, ","))
	}

	return b.String()
}

// Builder declares a route. Nothing is registered until Handle is called.
type Builder struct {
	manager  *Manager
	methods  []string
	path     string
	regex    bool
	consumes []mime.MIME
	produces []mime.MIME
}

func (b *Builder) Method(methods ...method.Method) *Builder {
	for _, m := range methods {
		b.methods = append(b.methods, m.String())
	}

	return b
}

func (b *Builder) Get(path string) *Builder {
	return b.Method(method.GET).Path(path)
}

func (b *Builder) Head(path string) *Builder {
	return b.Method(method.HEAD).Path(path)
}

func (b *Builder) Post(path string) *Builder {
	return b.Method(method.POST).Path(path)
}

func (b *Builder) Put(path string) *Builder {
	return b.Method(method.PUT).Path(path)
}

func (b *Builder) Delete(path string) *Builder {
	return b.Method(method.DELETE).Path(path)
}

func (b *Builder) Patch(path string) *Builder {
	return b.Method(method.PATCH).Path(path)
}

func (b *Builder) Connect(path string) *Builder {
	return b.Method(method.CONNECT).Path(path)
}

// Path sets the path the route matches. It's either exact (/users/42), a glob (/files/*)
// capturing param0..N or a template (/users/:id) capturing named segments.
func (b *Builder) Path(path string) *Builder {
	b.path, b.regex = path, false
	return b
}

// PathRegex sets the regular expression the whole path must match. Named groups are
// captured by their names, unnamed by group1..N.
func (b *Builder) PathRegex(expr string) *Builder {
	b.path, b.regex = expr, true
	return b
}

// Consumes sets the acceptable request content types, either exact or patterns like image/*.
func (b *Builder) Consumes(types ...mime.MIME) *Builder {
	b.consumes = append(b.consumes, types...)
	return b
}

// Produces sets the media types the route responds with. A request matches if its Accept
// header allows any of them.
func (b *Builder) Produces(types ...mime.MIME) *Builder {
	b.produces = append(b.produces, types...)
	return b
}

// Handle registers the route with the handlers chain.
func (b *Builder) Handle(handlers ...Handler) (*Route, error) {
	if len(handlers) == 0 {
		return nil, ErrNoHandlers
	}

	route := &Route{
		methods:  b.methods,
		path:     b.path,
		consumes: b.consumes,
		produces: b.produces,
		handlers: handlers,
	}

	if len(b.methods) > 0 {
		route.dims = route.dims.With(Method)
	}

	if len(b.path) > 0 {
		route.dims = route.dims.With(Path)
	}

	if len(b.consumes) > 0 {
		route.dims = route.dims.With(ContentType)
	}

	if len(b.produces) > 0 {
		route.dims = route.dims.With(Accept)
	}

	if route.dims.Empty() {
		return nil, ErrNoDimensions
	}

	if err := b.manager.register(route, b.regex); err != nil {
		return nil, err
	}

	return route, nil
}

// MustHandle is Handle panicking on error.
func (b *Builder) MustHandle(handlers ...Handler) *Route {
	route, err := b.Handle(handlers...)
	if err != nil {
		panic(err.Error())
	}

	return route
}
