// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-passphrase")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("s3cret-passphrase", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, err := HashPassword("same input")
	require.NoError(t, err)
	second, err := HashPassword("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPasswordTimingSafeMissingUser(t *testing.T) {
	ok, rehash, err := VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rehash)

	empty := ""
	ok, _, err = VerifyPasswordTimingSafe("anything", &empty)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviceFingerprint(t *testing.T) {
	fp := DeviceFingerprint("Mozilla/5.0", "203.0.113.7")

	assert.Len(t, fp, 64, "hex-encoded sha256")
	assert.Equal(t, fp, DeviceFingerprint("Mozilla/5.0", "203.0.113.7"),
		"same inputs always map to the same fingerprint")

	assert.NotEqual(t, fp, DeviceFingerprint("Mozilla/5.0", "203.0.113.8"))
	assert.NotEqual(t, fp, DeviceFingerprint("curl/8.0", "203.0.113.7"))

	// the separator keeps concatenation ambiguity out of the hash
	assert.NotEqual(t,
		DeviceFingerprint("ab", "c"),
		DeviceFingerprint("a", "bc"),
	)
}

func TestTokenHashRoundTrip(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	hash := HashToken(token)
	assert.NotEqual(t, token, hash)
	assert.True(t, CompareTokenHash(token, hash))
	assert.False(t, CompareTokenHash("different", hash))
}

func TestGenerateSecureTokenLength(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
