package mime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComplies(t *testing.T) {
	for _, tc := range []string{"", JSON, JSON + ";", JSON + ";param", "Application/JSON; charset=utf8"} {
		require.True(t, Complies(JSON, tc), tc)
	}

	require.False(t, Complies(JSON, Plain))
}

func TestCovers(t *testing.T) {
	require.True(t, Covers(Any, JSON))
	require.True(t, Covers("application/*", JSON))
	require.True(t, Covers("TEXT/*", HTML+"; charset=utf8"))
	require.True(t, Covers(JSON, JSON))
	require.False(t, Covers("text/*", JSON))
	require.False(t, Covers(Any, ""))
	require.False(t, Covers("garbage", JSON))
}

func TestParseAccept(t *testing.T) {
	t.Run("ordered with qualities", func(t *testing.T) {
		ranges := ParseAccept("text/html, application/json;q=0.5 , */*;q=0.1")
		require.Equal(t, []Range{
			{MIME: HTML, Quality: 1},
			{MIME: JSON, Quality: 0.5},
			{MIME: Any, Quality: 0.1},
		}, ranges)
	})

	t.Run("refused ranges are dropped", func(t *testing.T) {
		ranges := ParseAccept("text/plain;q=0, application/json")
		require.Equal(t, []Range{{MIME: JSON, Quality: 1}}, ranges)
	})

	t.Run("empty", func(t *testing.T) {
		require.Empty(t, ParseAccept(""))
		require.Empty(t, ParseAccept(" , ,"))
	})
}
