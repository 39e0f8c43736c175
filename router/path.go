package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/indigo-web/ember/kv"
)

type pathKind uint8

const (
	exactPath pathKind = iota + 1
	globPath
	paramPath
	regexPath
)

func classify(path string) pathKind {
	switch {
	case strings.Contains(path, "/:"):
		return paramPath
	case strings.IndexByte(path, '*') != -1:
		return globPath
	default:
		return exactPath
	}
}

// normalize removes trailing slashes, as all request paths are also trimmed, resulting
// in consensus between these two.
func normalize(path string) string {
	for i := len(path) - 1; i > 0; i-- {
		if path[i] != '/' {
			return path[:i+1]
		}
	}

	if len(path) > 0 {
		return path[:1]
	}

	return path
}

type exactPathMatcher struct {
	routes map[string][]*Route
}

func newExactPathMatcher() *exactPathMatcher {
	return &exactPathMatcher{routes: make(map[string][]*Route)}
}

func (*exactPathMatcher) Dimension() Dimension {
	return Path
}

func (e *exactPathMatcher) add(path string, route *Route) {
	path = normalize(path)
	e.routes[path] = append(e.routes[path], route)
}

func (e *exactPathMatcher) Match(path string) []Hit {
	return hitsOf(e.routes[normalize(path)])
}

// glob is a path pattern where each asterisk matches any sequence of characters,
// including slashes.
type glob struct {
	parts []string
}

func parseGlob(pattern string) glob {
	return glob{parts: strings.Split(normalize(pattern), "*")}
}

// match binds captures to param0..N in order of the asterisks.
func (g glob) match(path string) (*kv.Storage, bool) {
	first, last := g.parts[0], g.parts[len(g.parts)-1]
	if !strings.HasPrefix(path, first) {
		return nil, false
	}

	rest := path[len(first):]
	params := kv.NewPrealloc(len(g.parts) - 1)

	for i, part := range g.parts[1 : len(g.parts)-1] {
		idx := strings.Index(rest, part)
		if idx == -1 {
			return nil, false
		}

		params.Add("param"+strconv.Itoa(i), rest[:idx])
		rest = rest[idx+len(part):]
	}

	if len(rest) < len(last) || !strings.HasSuffix(rest, last) {
		return nil, false
	}

	params.Add("param"+strconv.Itoa(len(g.parts)-2), rest[:len(rest)-len(last)])

	return params, true
}

type globEntry struct {
	glob  glob
	route *Route
}

type globPathMatcher struct {
	entries []globEntry
}

func (*globPathMatcher) Dimension() Dimension {
	return Path
}

func (g *globPathMatcher) add(pattern string, route *Route) {
	g.entries = append(g.entries, globEntry{glob: parseGlob(pattern), route: route})
}

func (g *globPathMatcher) Match(path string) (hits []Hit) {
	path = normalize(path)
	for _, entry := range g.entries {
		if params, ok := entry.glob.match(path); ok {
			hits = append(hits, Hit{Route: entry.route, Params: params})
		}
	}

	return hits
}

// template is a path like /users/:id/books/:book. Every segment starting with a colon
// matches a single non-empty path segment.
type template struct {
	segments []string
}

func parseTemplate(path string) (template, error) {
	if len(path) == 0 || path[0] != '/' {
		return template{}, fmt.Errorf("%w: leading slash is compulsory: %q", ErrBadPattern, path)
	}

	segments := strings.Split(normalize(path)[1:], "/")
	for _, segment := range segments {
		if segment == ":" {
			return template{}, fmt.Errorf("%w: unnamed parameter in %q", ErrBadPattern, path)
		}
	}

	return template{segments: segments}, nil
}

func (t template) match(path string) (*kv.Storage, bool) {
	if len(path) == 0 || path[0] != '/' {
		return nil, false
	}

	path = path[1:]
	params := kv.New()

	for i, segment := range t.segments {
		var value string
		if i == len(t.segments)-1 {
			value, path = path, ""
			if strings.IndexByte(value, '/') != -1 {
				return nil, false
			}
		} else {
			slash := strings.IndexByte(path, '/')
			if slash == -1 {
				return nil, false
			}

			value, path = path[:slash], path[slash+1:]
		}

		if name, isParam := strings.CutPrefix(segment, ":"); isParam {
			if len(value) == 0 {
				return nil, false
			}

			params.Add(name, value)
		} else if value != segment {
			return nil, false
		}
	}

	return params, true
}

type templateEntry struct {
	template template
	route    *Route
}

type paramPathMatcher struct {
	entries []templateEntry
}

func (*paramPathMatcher) Dimension() Dimension {
	return Path
}

func (p *paramPathMatcher) add(tmpl template, route *Route) {
	p.entries = append(p.entries, templateEntry{template: tmpl, route: route})
}

func (p *paramPathMatcher) Match(path string) (hits []Hit) {
	path = normalize(path)
	for _, entry := range p.entries {
		if params, ok := entry.template.match(path); ok {
			hits = append(hits, Hit{Route: entry.route, Params: params})
		}
	}

	return hits
}

type regexEntry struct {
	expr  *regexp.Regexp
	route *Route
}

type regexPathMatcher struct {
	entries []regexEntry
}

func compileRegex(expr string) (*regexp.Regexp, error) {
	compiled, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPattern, err)
	}

	return compiled, nil
}

func (*regexPathMatcher) Dimension() Dimension {
	return Path
}

func (r *regexPathMatcher) add(expr *regexp.Regexp, route *Route) {
	r.entries = append(r.entries, regexEntry{expr: expr, route: route})
}

// Match binds named groups by their names and unnamed ones as group1..N, where N is
// the index of the group in the expression.
func (r *regexPathMatcher) Match(path string) (hits []Hit) {
	path = normalize(path)
	for _, entry := range r.entries {
		submatches := entry.expr.FindStringSubmatch(path)
		if submatches == nil {
			continue
		}

		params := kv.NewPrealloc(len(submatches) - 1)
		for i, name := range entry.expr.SubexpNames()[1:] {
			if len(name) == 0 {
				name = "group" + strconv.Itoa(i+1)
			}

			params.Add(name, submatches[i+1])
		}

		hits = append(hits, Hit{Route: entry.route, Params: params})
	}

	return hits
}
