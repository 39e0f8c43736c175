package method

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMethod(t *testing.T) {
	for _, method := range List {
		require.Equal(t, method, Parse(method.String()))
	}

	require.Equal(t, Unknown, Parse("get"))
	require.Equal(t, Unknown, Parse("REPORT"))
	require.Equal(t, "UNKNOWN", Method(200).String())
	require.Equal(t, PATCH, Method(Count))
}
