package router

import "github.com/indigo-web/ember/kv"

// Hit is a route matched by a single dimension along with the parameters the
// match extracted, if any.
type Hit struct {
	Route  *Route
	Params *kv.Storage
}

// Matcher is a strategy of matching a single dimension of requests.
type Matcher interface {
	Dimension() Dimension
	// Match returns every route the value matches. Empty values are never passed.
	Match(value string) []Hit
}
