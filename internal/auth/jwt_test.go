// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := testJWTManager(t)

	claims := AccessTokenClaims{
		UserID:       "user-123",
		Role:         "agent",
		DeviceID:     "fingerprint-abc",
		TokenVersion: 3,
	}

	token, err := manager.CreateAccessToken(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := manager.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", parsed.UserID)
	assert.Equal(t, "agent", parsed.Role)
	assert.Equal(t, "fingerprint-abc", parsed.DeviceID)
	assert.Equal(t, 3, parsed.TokenVersion)
	assert.NotEmpty(t, parsed.JTI)
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	manager := testJWTManager(t)

	_, err := manager.VerifyAccessToken(
		context.Background(),
		"not.a.token",
	)
	assert.Error(t, err)
}

func TestVerifyAccessTokenRejectsForeignKey(t *testing.T) {
	issuer := testJWTManager(t)
	verifier := testJWTManager(t)

	token, err := issuer.CreateAccessToken(AccessTokenClaims{
		UserID: "user-123",
		Role:   "customer",
	})
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(context.Background(), token)
	assert.Error(t, err)
}

func TestCreateRefreshTokenStartsNewFamily(t *testing.T) {
	manager := testJWTManager(t)

	data, err := manager.CreateRefreshToken("user-123", "")
	require.NoError(t, err)

	assert.NotEmpty(t, data.Token)
	assert.NotEmpty(t, data.Hash)
	assert.NotEmpty(t, data.FamilyID)
	assert.True(t, data.ExpiresAt.After(time.Now()))

	rotated, err := manager.CreateRefreshToken("user-123", data.FamilyID)
	require.NoError(t, err)
	assert.Equal(t, data.FamilyID, rotated.FamilyID,
		"rotation keeps the family")
	assert.NotEqual(t, data.Token, rotated.Token)
}

func TestJWKSHandlerServesPublicKey(t *testing.T) {
	manager := testJWTManager(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()

	manager.GetJWKSHandler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), `"keys"`)
	assert.NotContains(t, rec.Body.String(), `"d"`,
		"private key material never leaves the server")
}
