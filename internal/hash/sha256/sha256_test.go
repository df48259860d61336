package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsStableHexDigest(t *testing.T) {
	h := New()

	first, err := h.Hash([]byte("backend engineer|acme|geneva"))
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := h.Hash([]byte("backend engineer|acme|geneva"))
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := h.Hash([]byte("backend engineer|acme|lausanne"))
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}
