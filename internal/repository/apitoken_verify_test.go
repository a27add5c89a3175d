package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listing-relay/internal/utils"
)

func mintToken(t *testing.T) (APIToken, string) {
	t.Helper()
	gen, err := utils.NewAPIToken()
	require.NoError(t, err)
	return APIToken{
		TokenHash: gen.Hash,
		Prefix:    gen.Prefix,
		Suffix:    gen.Suffix,
		IsActive:  true,
	}, gen.Plain
}

func TestVerifyPlain(t *testing.T) {
	now := time.Now().UTC()
	tok, plain := mintToken(t)

	assert.True(t, tok.VerifyPlain(plain, now))
	assert.False(t, tok.VerifyPlain(plain+"x", now))
	assert.False(t, tok.VerifyPlain("", now))
}

func TestVerifyPlainExpired(t *testing.T) {
	now := time.Now().UTC()
	tok, plain := mintToken(t)

	past := now.Add(-time.Hour)
	tok.ExpiresAt = &past
	assert.False(t, tok.VerifyPlain(plain, now), "expired token must not verify even with the right secret")

	future := now.Add(time.Hour)
	tok.ExpiresAt = &future
	assert.True(t, tok.VerifyPlain(plain, now))
}

func TestVerifyPlainInactive(t *testing.T) {
	now := time.Now().UTC()
	tok, plain := mintToken(t)

	tok.IsActive = false
	assert.False(t, tok.VerifyPlain(plain, now))
}

func TestScopeList(t *testing.T) {
	tok := APIToken{Scopes: `["callback","listings:read"]`}
	assert.Equal(t, []string{"callback", "listings:read"}, tok.ScopeList())
	assert.True(t, tok.HasScope("callback"))
	assert.False(t, tok.HasScope("admin"))

	empty := APIToken{Scopes: ""}
	assert.Empty(t, empty.ScopeList())
	assert.False(t, empty.HasScope("callback"))

	malformed := APIToken{Scopes: "{not json"}
	assert.Empty(t, malformed.ScopeList())
}
