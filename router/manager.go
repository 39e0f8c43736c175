package router

import (
	"regexp"
	"slices"
	"sync"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/mime"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/kv"
)

// Query is the request data routes are matched against. Empty values don't take
// part in matching.
type Query struct {
	Method      string
	Path        string
	ContentType string
	Accept      string
}

func QueryFor(request *http.Request) Query {
	return Query{
		Method:      request.Method.String(),
		Path:        request.Path,
		ContentType: request.ContentType(),
		Accept:      request.Accept(),
	}
}

func (q Query) value(dim Dimension) string {
	switch dim {
	case Method:
		return q.Method
	case Path:
		return q.Path
	case ContentType:
		return q.ContentType
	case Accept:
		return q.Accept
	default:
		return ""
	}
}

// Manager registers routes and finds those matching requests. Registration must be
// done by a single goroutine, however Find is safe to be called concurrently.
type Manager struct {
	mu       sync.RWMutex
	nextID   int
	routes   []*Route
	notFound Handler

	method             *methodMatcher
	exactPath          *exactPathMatcher
	globPath           *globPathMatcher
	paramPath          *paramPathMatcher
	regexPath          *regexPathMatcher
	contentTypeExact   *contentTypeExactMatcher
	contentTypePattern *contentTypePatternMatcher
	acceptExact        *acceptExactMatcher
	acceptPattern      *acceptPatternMatcher
	matchers           map[Dimension][]Matcher
}

func New() *Manager {
	m := &Manager{
		notFound:           defaultNotFound,
		method:             newMethodMatcher(),
		exactPath:          newExactPathMatcher(),
		globPath:           new(globPathMatcher),
		paramPath:          new(paramPathMatcher),
		regexPath:          new(regexPathMatcher),
		contentTypeExact:   newContentTypeExactMatcher(),
		contentTypePattern: new(contentTypePatternMatcher),
		acceptExact:        newAcceptExactMatcher(),
		acceptPattern:      new(acceptPatternMatcher),
	}

	m.matchers = map[Dimension][]Matcher{
		Method:      {m.method},
		Path:        {m.exactPath, m.globPath, m.paramPath, m.regexPath},
		ContentType: {m.contentTypeExact, m.contentTypePattern},
		Accept:      {m.acceptExact, m.acceptPattern},
	}

	return m
}

// Route starts declaring a new route.
func (m *Manager) Route() *Builder {
	return &Builder{manager: m}
}

// Matchers returns the matchers of the dimension in order they're applied.
func (m *Manager) Matchers(dim Dimension) []Matcher {
	return m.matchers[dim]
}

// Routes returns all the registered routes in order of registration.
func (m *Manager) Routes() []*Route {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.routes)
}

// NotFound returns the handler for requests no route fully matches.
func (m *Manager) NotFound() Handler {
	return m.notFound
}

func (m *Manager) SetNotFound(handler Handler) *Manager {
	m.notFound = handler
	return m
}

func (m *Manager) register(route *Route, regex bool) error {
	var (
		tmpl     template
		compiled *regexp.Regexp
		err      error
	)

	if route.dims.Has(Path) {
		switch {
		case regex:
			compiled, err = compileRegex(route.path)
		case classify(route.path) == paramPath:
			tmpl, err = parseTemplate(route.path)
		}

		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	route.id = m.nextID
	m.nextID++
	m.routes = append(m.routes, route)

	for _, method := range route.methods {
		m.method.add(method, route)
	}

	if route.dims.Has(Path) {
		switch {
		case regex:
			m.regexPath.add(compiled, route)
		default:
			switch classify(route.path) {
			case exactPath:
				m.exactPath.add(route.path, route)
			case globPath:
				m.globPath.add(route.path, route)
			case paramPath:
				m.paramPath.add(tmpl, route)
			}
		}
	}

	for _, consumes := range route.consumes {
		if mime.IsPattern(consumes) {
			m.contentTypePattern.add(consumes, route)
		} else {
			m.contentTypeExact.add(consumes, route)
		}
	}

	for _, produces := range route.produces {
		if !mime.IsPattern(produces) {
			m.acceptExact.add(produces, route)
		}

		m.acceptPattern.add(produces, route)
	}

	return nil
}

type candidate struct {
	dims   Dimensions
	params *kv.Storage
}

// Find returns the routes fully matching the query, meaning every dimension the route
// declares is matched, sorted by their IDs. The parameters of each hit are the union of
// parameters extracted by all the matchers.
func (m *Manager) Find(query Query) []Hit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make(map[*Route]*candidate)

	for _, dim := range dimensions {
		value := query.value(dim)
		if len(value) == 0 {
			continue
		}

		for _, matcher := range m.matchers[dim] {
			for _, hit := range matcher.Match(value) {
				c, found := candidates[hit.Route]
				if !found {
					c = new(candidate)
					candidates[hit.Route] = c
				}

				c.dims = c.dims.With(dim)
				if !hit.Params.Empty() {
					if c.params == nil {
						c.params = kv.New()
					}

					c.params.Merge(hit.Params)
				}
			}
		}
	}

	var hits []Hit
	for route, c := range candidates {
		if c.dims == route.dims {
			hits = append(hits, Hit{Route: route, Params: c.params})
		}
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		return a.Route.id - b.Route.id
	})

	return hits
}

func defaultNotFound(ctx *Context) {
	_ = ctx.Error(status.ErrNotFound)
}
