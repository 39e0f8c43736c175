package router

import (
	"strings"

	"github.com/indigo-web/ember/http/mime"
)

type mediaEntry struct {
	mime  mime.MIME
	route *Route
}

// contentTypeExactMatcher matches the request Content-Type, stripped of parameters, against
// the consumed types case-insensitively.
type contentTypeExactMatcher struct {
	routes map[string][]*Route
}

func newContentTypeExactMatcher() *contentTypeExactMatcher {
	return &contentTypeExactMatcher{routes: make(map[string][]*Route)}
}

func (*contentTypeExactMatcher) Dimension() Dimension {
	return ContentType
}

func (c *contentTypeExactMatcher) add(consumes mime.MIME, route *Route) {
	consumes = strings.ToLower(mime.Essence(consumes))
	c.routes[consumes] = append(c.routes[consumes], route)
}

func (c *contentTypeExactMatcher) Match(contentType string) []Hit {
	return hitsOf(c.routes[strings.ToLower(mime.Essence(contentType))])
}

// contentTypePatternMatcher matches consumed patterns like application/* or */*.
type contentTypePatternMatcher struct {
	entries []mediaEntry
}

func (*contentTypePatternMatcher) Dimension() Dimension {
	return ContentType
}

func (c *contentTypePatternMatcher) add(pattern mime.MIME, route *Route) {
	c.entries = append(c.entries, mediaEntry{mime: pattern, route: route})
}

func (c *contentTypePatternMatcher) Match(contentType string) (hits []Hit) {
	for _, entry := range c.entries {
		if mime.Covers(entry.mime, contentType) {
			hits = append(hits, Hit{Route: entry.route})
		}
	}

	return hits
}

// acceptExactMatcher hits routes producing exactly one of the acceptable media ranges.
type acceptExactMatcher struct {
	routes map[string][]*Route
}

func newAcceptExactMatcher() *acceptExactMatcher {
	return &acceptExactMatcher{routes: make(map[string][]*Route)}
}

func (*acceptExactMatcher) Dimension() Dimension {
	return Accept
}

func (a *acceptExactMatcher) add(produces mime.MIME, route *Route) {
	produces = strings.ToLower(mime.Essence(produces))
	a.routes[produces] = append(a.routes[produces], route)
}

func (a *acceptExactMatcher) Match(accept string) (hits []Hit) {
	for _, r := range mime.ParseAccept(accept) {
		if !mime.IsPattern(r.MIME) {
			hits = append(hits, hitsOf(a.routes[r.MIME])...)
		}
	}

	return hits
}

// acceptPatternMatcher hits routes whose produced type is covered by a wildcard media
// range, as well as routes producing a pattern covering a concrete media range.
type acceptPatternMatcher struct {
	entries []mediaEntry
}

func (*acceptPatternMatcher) Dimension() Dimension {
	return Accept
}

func (a *acceptPatternMatcher) add(produces mime.MIME, route *Route) {
	a.entries = append(a.entries, mediaEntry{mime: produces, route: route})
}

func (a *acceptPatternMatcher) Match(accept string) (hits []Hit) {
	ranges := mime.ParseAccept(accept)

	for _, entry := range a.entries {
		for _, r := range ranges {
			rangeCovers := mime.IsPattern(r.MIME) && mime.Covers(r.MIME, entry.mime)
			routeCovers := mime.IsPattern(entry.mime) && mime.Covers(entry.mime, r.MIME)
			if rangeCovers || routeCovers {
				hits = append(hits, Hit{Route: entry.route})
				break
			}
		}
	}

	return hits
}

func hitsOf(routes []*Route) []Hit {
	if len(routes) == 0 {
		return nil
	}

	hits := make([]Hit, len(routes))
	for i, route := range routes {
		hits[i] = Hit{Route: route}
	}

	return hits
}
