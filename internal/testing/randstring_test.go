package testing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandStringN(t *testing.T) {
	for _, n := range []int{0, 1, 10, 64} {
		s := RandStringN(n)
		require.Len(t, s, n)
		require.Empty(t, strings.Trim(s, letters))
	}
}

func TestRandEmail(t *testing.T) {
	email := RandEmail()
	require.True(t, strings.HasSuffix(email, "@example.com"))
	require.Equal(t, strings.ToLower(email), email)
}
