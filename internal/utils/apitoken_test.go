package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIToken(t *testing.T) {
	gen, err := NewAPIToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gen.Plain, "lr_"))
	assert.Len(t, gen.Plain, 3+96)
	assert.Equal(t, HashAPIToken(gen.Plain), gen.Hash)
	assert.Equal(t, gen.Plain[:8], gen.Prefix)
	assert.Equal(t, gen.Plain[len(gen.Plain)-4:], gen.Suffix)
	assert.NotContains(t, gen.Hash, gen.Plain)
}

func TestNewAPITokenUnique(t *testing.T) {
	a, err := NewAPIToken()
	require.NoError(t, err)
	b, err := NewAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, a.Plain, b.Plain)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestAPITokenPrefix(t *testing.T) {
	assert.Equal(t, "lr_abcde", APITokenPrefix("lr_abcdefgh"))
	assert.Equal(t, "", APITokenPrefix("short"))
	assert.Equal(t, "", APITokenPrefix(""))
}
