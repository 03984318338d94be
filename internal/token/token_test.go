package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	tok, err := New()
	require.NoError(t, err)
	assert.Len(t, tok, Length)
	for _, r := range tok {
		assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := New()
		require.NoError(t, err)
		require.False(t, seen[tok], "duplicate token after %d draws", i)
		seen[tok] = true
	}
}

func TestNewCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}
