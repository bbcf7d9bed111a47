package asset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmbeddedRoundTrip(t *testing.T) {
	path := formatEmbedded(UUID(42), 7, "diffuse.png")
	require.Equal(t, "@42-7/diffuse.png", path)

	ref, ok := parseEmbedded(path)
	require.True(t, ok)
	require.Equal(t, UUID(42), ref.Embedder)
	require.Equal(t, uint64(7), ref.DataID)
	require.Equal(t, "diffuse.png", ref.Name)
}

func TestParseEmbeddedRejectsNonEmbedded(t *testing.T) {
	_, ok := parseEmbedded("textures/diffuse.png")
	require.False(t, ok)
}

func TestParseEmbeddedRejectsMalformed(t *testing.T) {
	cases := []string{
		"@42/diffuse.png",   // missing data id
		"@42-7",             // missing slash + name
		"@42-7/",            // empty name
		"@abc-7/diffuse.png", // non-numeric uuid
	}
	for _, c := range cases {
		_, ok := parseEmbedded(c)
		require.False(t, ok, "expected %q to be rejected", c)
	}
}
