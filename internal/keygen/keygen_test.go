package keygen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func TestGenerateLengthAndAlphabet(t *testing.T) {
	g, err := New(6, alnum)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		key, err := g.Generate()
		require.NoError(t, err)
		require.Len(t, key, 6)
		for _, c := range key {
			require.True(t, strings.ContainsRune(alnum, c), "unexpected character %q in %s", c, key)
		}
	}
}

func TestGenerateRejectsBiasedBytes(t *testing.T) {
	// 62 个字符时 limit = 248，248 以上的字节必须被丢弃
	src := bytes.NewReader([]byte{250, 255, 248, 0, 1, 61, 62, 247, 9, 9, 9, 9})
	g, err := NewWithSource(4, alnum, src)
	require.NoError(t, err)

	key, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "ab9a", key)
}

func TestGenerateSourceExhausted(t *testing.T) {
	g, err := NewWithSource(8, alnum, bytes.NewReader([]byte{1, 2, 3}))
	require.NoError(t, err)

	_, err = g.Generate()
	assert.Error(t, err)
}

func TestGenerateCoversAlphabet(t *testing.T) {
	g, err := New(8, "ab")
	require.NoError(t, err)

	counts := map[rune]int{}
	for i := 0; i < 200; i++ {
		key, err := g.Generate()
		require.NoError(t, err)
		for _, c := range key {
			counts[c]++
		}
	}
	assert.Greater(t, counts['a'], 500)
	assert.Greater(t, counts['b'], 500)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		alphabet string
	}{
		{"zero length", 0, alnum},
		{"single char alphabet", 6, "a"},
		{"duplicate chars", 6, "abca"},
		{"reserved char", 6, "ab/c"},
		{"space", 6, "ab c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.length, tt.alphabet)
			assert.Error(t, err)
		})
	}
}
