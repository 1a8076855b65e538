package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropmart/dropmart-backend/pkg/config"
	"github.com/dropmart/dropmart-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "dropmart", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(testJWT, now, AccessTokenPayload{UserID: userID, Email: " Ada@Example.com ", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, "dropmart", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenValidation(t *testing.T) {
	now := time.Now()
	valid := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	_, err := MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, now, valid)
	assert.Error(t, err, "missing secret")
	_, err = MintAccessToken(config.JWTConfig{Secret: "s", ExpirationMinutes: 1}, now, valid)
	assert.Error(t, err, "missing issuer")
	_, err = MintAccessToken(config.JWTConfig{Secret: "s", Issuer: "x"}, now, valid)
	assert.Error(t, err, "missing ttl")
	_, err = MintAccessToken(testJWT, now, AccessTokenPayload{Role: enums.UserRoleCustomer})
	assert.Error(t, err, "missing user")
	_, err = MintAccessToken(testJWT, now, AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	assert.Error(t, err, "bad role")
}

func TestParseAccessTokenRejects(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	expired, err := MintAccessToken(testJWT, past, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)
	_, err = ParseAccessToken(testJWT, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	good, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	wrongSecret := testJWT
	wrongSecret.Secret = "other"
	_, err = ParseAccessToken(wrongSecret, good)
	assert.Error(t, err)

	wrongIssuer := testJWT
	wrongIssuer.Issuer = "someone-else"
	_, err = ParseAccessToken(wrongIssuer, good)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(testJWT, unsigned)
	assert.Error(t, err)
}
