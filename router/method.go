package router

import "strings"

type methodMatcher struct {
	routes map[string][]*Route
}

func newMethodMatcher() *methodMatcher {
	return &methodMatcher{routes: make(map[string][]*Route)}
}

func (*methodMatcher) Dimension() Dimension {
	return Method
}

func (m *methodMatcher) add(method string, route *Route) {
	method = strings.ToUpper(method)
	m.routes[method] = append(m.routes[method], route)
}

func (m *methodMatcher) Match(method string) []Hit {
	return hitsOf(m.routes[strings.ToUpper(method)])
}
