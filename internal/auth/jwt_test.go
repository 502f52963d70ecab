package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateToken_DefaultExpiry(t *testing.T) {
	before := time.Now()

	token, err := GenerateToken("alice", testSecret, DefaultTokenTTL)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserName)
	assert.Equal(t, "alice", claims.Subject)

	// 24 hours from issuance, second precision
	expiry := claims.ExpiresAt.Time
	assert.WithinDuration(t, before.Add(24*time.Hour), expiry, 2*time.Second)
}

func TestValidateToken_InvalidSecret(t *testing.T) {
	token, err := GenerateToken("bob", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "wrong-secret")

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	token, err := GenerateToken("carol", testSecret, -1*time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_MalformedToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "Empty token",
			token: "",
		},
		{
			name:  "Random string",
			token: "not-a-valid-jwt-token",
		},
		{
			name:  "Incomplete JWT",
			token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, testSecret)

			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateToken_NoneAlgorithmRejected(t *testing.T) {
	claims := Claims{
		UserName: "mallory",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parsed, err := ValidateToken(tokenString, testSecret)

	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_MissingUserName(t *testing.T) {
	token, err := GenerateToken("", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	token, err := GenerateToken("bob", "", DefaultTokenTTL)

	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestValidateToken_EmptySecret(t *testing.T) {
	// HS256 signed with an empty key must not verify against an empty key
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserName: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(""))
	require.NoError(t, err)

	claims, err := ValidateToken(forged, "")

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetClaimsFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("present", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(ClaimsKey, &Claims{UserName: "alice"})

		claims, err := GetClaimsFromContext(c)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.UserName)
	})

	t.Run("missing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		claims, err := GetClaimsFromContext(c)
		assert.Nil(t, claims)
		assert.Contains(t, err.Error(), "claims not found in context")
	})

	t.Run("wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(ClaimsKey, "alice")

		claims, err := GetClaimsFromContext(c)
		assert.Nil(t, claims)
		assert.Contains(t, err.Error(), "invalid claims type")
	})
}

func TestPasswordHash_RoundTrip(t *testing.T) {
	hash, err := GeneratePasswordHash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, ComparePasswordHash([]byte(hash), "s3cret"))
	assert.Error(t, ComparePasswordHash([]byte(hash), "wrong"))
	assert.Error(t, ComparePasswordHash(nil, "s3cret"))
}

func BenchmarkValidateToken(b *testing.B) {
	token, _ := GenerateToken("bench", testSecret, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ValidateToken(token, testSecret)
	}
}
