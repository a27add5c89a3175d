package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// apiTokenPrefixLen is how many leading characters of a token are stored in
// clear as a non-secret display/lookup prefix.
const apiTokenPrefixLen = 8

// apiTokenSuffixLen is how many trailing characters are stored in clear so
// users can tell their tokens apart in listings.
const apiTokenSuffixLen = 4

// GeneratedAPIToken bundles everything produced when a new API token is
// minted. Plain is handed to the caller exactly once; only Hash, Prefix and
// Suffix are ever persisted.
type GeneratedAPIToken struct {
	Plain  string
	Hash   string
	Prefix string
	Suffix string
}

// NewAPIToken mints a random API token. The value is "lr_" followed by 48
// bytes of hex, mirroring how refresh tokens are generated; the recognizable
// prefix makes leaked tokens easy to grep for.
func NewAPIToken() (GeneratedAPIToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return GeneratedAPIToken{}, err
	}
	plain := "lr_" + hex.EncodeToString(buf)
	return GeneratedAPIToken{
		Plain:  plain,
		Hash:   HashAPIToken(plain),
		Prefix: plain[:apiTokenPrefixLen],
		Suffix: plain[len(plain)-apiTokenSuffixLen:],
	}, nil
}

// HashAPIToken returns the SHA-256 hex digest of a plaintext token.
func HashAPIToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// APITokenPrefix returns the display prefix of a presented token, or ""
// when the value is too short to be a token at all.
func APITokenPrefix(plain string) string {
	if len(plain) < apiTokenPrefixLen {
		return ""
	}
	return plain[:apiTokenPrefixLen]
}
