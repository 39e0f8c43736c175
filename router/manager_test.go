package router

import (
	"testing"

	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/mime"
	"github.com/stretchr/testify/require"
)

func nop(*Context) {}

func ids(hits []Hit) []int {
	result := make([]int, len(hits))
	for i, hit := range hits {
		result[i] = hit.Route.ID()
	}

	return result
}

func TestManager(t *testing.T) {
	t.Run("method and path", func(t *testing.T) {
		m := New()
		get := m.Route().Get("/a").MustHandle(nop)
		post := m.Route().Post("/a").MustHandle(nop)

		hits := m.Find(Query{Method: "GET", Path: "/a"})
		require.Equal(t, []int{get.ID()}, ids(hits))

		hits = m.Find(Query{Method: "POST", Path: "/a"})
		require.Equal(t, []int{post.ID()}, ids(hits))

		require.Empty(t, m.Find(Query{Method: "PUT", Path: "/a"}))
		require.Empty(t, m.Find(Query{Method: "GET", Path: "/b"}))
	})

	t.Run("ids are ordinals", func(t *testing.T) {
		m := New()
		for i := range 5 {
			route := m.Route().Get("/").MustHandle(nop)
			require.Equal(t, i, route.ID())
		}

		require.Equal(t, []int{0, 1, 2, 3, 4}, ids(m.Find(Query{Method: "GET", Path: "/"})))
	})

	t.Run("exact and parametrized paths", func(t *testing.T) {
		m := New()
		exact := m.Route().Get("/users/42").MustHandle(nop)
		param := m.Route().Get("/users/:id").MustHandle(nop)

		hits := m.Find(Query{Method: "GET", Path: "/users/42"})
		require.Equal(t, []int{exact.ID(), param.ID()}, ids(hits))
		require.Nil(t, hits[0].Params)
		require.Equal(t, "42", hits[1].Params.Value("id"))

		hits = m.Find(Query{Method: "GET", Path: "/users/7"})
		require.Equal(t, []int{param.ID()}, ids(hits))
		require.Equal(t, "7", hits[0].Params.Value("id"))

		require.Empty(t, m.Find(Query{Method: "GET", Path: "/users/7/books"}))
		require.Empty(t, m.Find(Query{Method: "GET", Path: "/users/"}))
	})

	t.Run("ordering is by registration, not specificity", func(t *testing.T) {
		m := New()
		param := m.Route().Get("/users/:id").MustHandle(nop)
		exact := m.Route().Get("/users/42").MustHandle(nop)

		require.Equal(t, []int{param.ID(), exact.ID()}, ids(m.Find(Query{Method: "GET", Path: "/users/42"})))
	})

	t.Run("trailing slash", func(t *testing.T) {
		m := New()
		route := m.Route().Get("/hello/").MustHandle(nop)
		require.Equal(t, []int{route.ID()}, ids(m.Find(Query{Method: "GET", Path: "/hello"})))
		require.Equal(t, []int{route.ID()}, ids(m.Find(Query{Method: "GET", Path: "/hello//"})))
	})

	t.Run("glob", func(t *testing.T) {
		m := New()
		route := m.Route().Get("/static/*/files/*").MustHandle(nop)

		hits := m.Find(Query{Method: "GET", Path: "/static/css/files/main/site.css"})
		require.Equal(t, []int{route.ID()}, ids(hits))
		require.Equal(t, "css", hits[0].Params.Value("param0"))
		require.Equal(t, "main/site.css", hits[0].Params.Value("param1"))

		require.Empty(t, m.Find(Query{Method: "GET", Path: "/static/css"}))
	})

	t.Run("regex", func(t *testing.T) {
		m := New()
		route := m.Route().Method(method.GET).PathRegex(`/posts/(?P<year>\d{4})/(\d+)`).MustHandle(nop)

		hits := m.Find(Query{Method: "GET", Path: "/posts/2024/15"})
		require.Equal(t, []int{route.ID()}, ids(hits))
		require.Equal(t, "2024", hits[0].Params.Value("year"))
		require.Equal(t, "15", hits[0].Params.Value("group2"))

		hits = m.Find(Query{Method: "GET", Path: "/posts/2024/15/"})
		require.Equal(t, []int{route.ID()}, ids(hits))
		require.Equal(t, "15", hits[0].Params.Value("group2"))

		require.Empty(t, m.Find(Query{Method: "GET", Path: "/posts/2024/15/extra"}))
		require.Empty(t, m.Find(Query{Method: "GET", Path: "/posts/24/15"}))
	})

	t.Run("trailing slash across path kinds", func(t *testing.T) {
		m := New()
		exact := m.Route().Get("/users/42").MustHandle(nop)
		param := m.Route().Get("/users/:id").MustHandle(nop)
		regex := m.Route().Method(method.GET).PathRegex(`/users/(\d+)`).MustHandle(nop)

		hits := m.Find(Query{Method: "GET", Path: "/users/42/"})
		require.Equal(t, []int{exact.ID(), param.ID(), regex.ID()}, ids(hits))
	})

	t.Run("path only", func(t *testing.T) {
		m := New()
		route := m.Route().Path("/any").MustHandle(nop)

		require.Equal(t, []int{route.ID()}, ids(m.Find(Query{Method: "DELETE", Path: "/any"})))
	})

	t.Run("content type", func(t *testing.T) {
		m := New()
		jsonRoute := m.Route().Post("/upload").Consumes(mime.JSON).MustHandle(nop)
		images := m.Route().Post("/upload").Consumes("image/*").MustHandle(nop)

		hits := m.Find(Query{Method: "POST", Path: "/upload", ContentType: "Application/JSON; charset=utf-8"})
		require.Equal(t, []int{jsonRoute.ID()}, ids(hits))

		hits = m.Find(Query{Method: "POST", Path: "/upload", ContentType: mime.PNG})
		require.Equal(t, []int{images.ID()}, ids(hits))

		require.Empty(t, m.Find(Query{Method: "POST", Path: "/upload"}))
		require.Empty(t, m.Find(Query{Method: "POST", Path: "/upload", ContentType: mime.Plain}))
	})

	t.Run("accept", func(t *testing.T) {
		m := New()
		jsonRoute := m.Route().Get("/data").Produces(mime.JSON).MustHandle(nop)
		html := m.Route().Get("/data").Produces(mime.HTML).MustHandle(nop)
		text := m.Route().Get("/data").Produces("text/*").MustHandle(nop)

		require.Equal(t, []int{jsonRoute.ID()}, ids(m.Find(Query{Method: "GET", Path: "/data", Accept: "application/json"})))
		require.Equal(t, []int{html.ID(), text.ID()}, ids(m.Find(Query{Method: "GET", Path: "/data", Accept: "text/html"})))
		require.Equal(t, []int{jsonRoute.ID(), html.ID(), text.ID()}, ids(m.Find(Query{Method: "GET", Path: "/data", Accept: "*/*"})))
		require.Equal(t, []int{jsonRoute.ID(), html.ID(), text.ID()}, ids(m.Find(Query{
			Method: "GET", Path: "/data", Accept: "application/json, */*;q=0.1",
		})))
		require.Empty(t, m.Find(Query{Method: "GET", Path: "/data", Accept: "application/json;q=0"}))
		require.Empty(t, m.Find(Query{Method: "GET", Path: "/data", Accept: "image/png"}))
	})

	t.Run("empty values are not matched", func(t *testing.T) {
		m := New()
		m.Route().Method(method.GET).MustHandle(nop)

		require.Empty(t, m.Find(Query{Path: "/"}))
	})

	t.Run("registration errors", func(t *testing.T) {
		m := New()

		_, err := m.Route().Handle(nop)
		require.ErrorIs(t, err, ErrNoDimensions)

		_, err = m.Route().Get("/").Handle()
		require.ErrorIs(t, err, ErrNoHandlers)

		_, err = m.Route().PathRegex("/(unclosed").Handle(nop)
		require.ErrorIs(t, err, ErrBadPattern)

		_, err = m.Route().Get("/users/:").Handle(nop)
		require.ErrorIs(t, err, ErrBadPattern)

		require.Panics(t, func() {
			m.Route().MustHandle(nop)
		})

		route := m.Route().Get("/").MustHandle(nop)
		require.Zero(t, route.ID(), "failed registrations must not consume ids")
		require.Len(t, m.Routes(), 1)
	})

	t.Run("dimensions", func(t *testing.T) {
		m := New()
		route := m.Route().Get("/").Consumes(mime.JSON).MustHandle(nop)

		require.True(t, route.Dimensions().Has(Method))
		require.True(t, route.Dimensions().Has(Path))
		require.True(t, route.Dimensions().Has(ContentType))
		require.False(t, route.Dimensions().Has(Accept))
		require.Equal(t, "{method, path, content-type}", route.Dimensions().String())
		require.Len(t, m.Matchers(Path), 4)
		require.Equal(t, "#0 GET / consumes=application/json", route.String())
	})
}
