package kv

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	getHeaders := func() *Storage {
		return New().
			Add("Foo", "bar").
			Add("Hello", "World").
			Add("Lorem", "ipsum").
			Add("hello", "Pavlo")
	}

	t.Run("values are case-insensitive and ordered", func(t *testing.T) {
		kv := getHeaders()
		require.Equal(t, []string{"World", "Pavlo"}, slices.Collect(kv.Values("HELLO")))
		require.Equal(t, "World", kv.Value("hello"))
		require.Equal(t, "fallback", kv.ValueOr("missing", "fallback"))
		require.True(t, kv.Has("foo"))
		require.False(t, kv.Has("bar"))
	})

	t.Run("delete", func(t *testing.T) {
		kv := getHeaders().Delete("HELLO")

		require.Equal(t, 2, kv.Len())
		require.Equal(t, []Pair{{"Foo", "bar"}, {"Lorem", "ipsum"}}, kv.Expose())
	})

	t.Run("set", func(t *testing.T) {
		kv := getHeaders().Set("HELLO", "no more Pavlo")

		want := []Pair{
			{"Foo", "bar"},
			{"HELLO", "no more Pavlo"},
			{"Lorem", "ipsum"},
		}
		require.Equal(t, want, kv.Expose())
	})

	t.Run("set new key", func(t *testing.T) {
		kv := New().
			Add("Pavlo", "the best").
			Set("Glory to", "Ukraine")

		require.Equal(t, []Pair{{"Pavlo", "the best"}, {"Glory to", "Ukraine"}}, kv.Expose())
	})

	t.Run("keys", func(t *testing.T) {
		require.Equal(t, []string{"Foo", "Hello", "Lorem"}, slices.Collect(getHeaders().Keys()))
	})

	t.Run("merge overrides", func(t *testing.T) {
		kv := New().Add("id", "1").Add("name", "x")
		kv.Merge(New().Add("ID", "2").Add("extra", "y"))

		require.Equal(t, "2", kv.Value("id"))
		require.Equal(t, "x", kv.Value("name"))
		require.Equal(t, "y", kv.Value("extra"))
		require.Equal(t, 3, kv.Len())
	})

	t.Run("clone is detached", func(t *testing.T) {
		original := getHeaders()
		clone := original.Clone()
		original.Clear()

		require.True(t, original.Empty())
		require.Equal(t, 4, clone.Len())
	})

	t.Run("nil storage reads", func(t *testing.T) {
		var kv *Storage
		require.Zero(t, kv.Len())
		require.False(t, kv.Has("x"))
		require.Empty(t, slices.Collect(kv.Values("x")))
	})
}
