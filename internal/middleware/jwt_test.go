package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_api/internal/apperror"
	"user_api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	protected := router.Group("/api", AuthMiddleware(testSecret))
	protected.GET("/users/:name", func(c *gin.Context) {
		claims, err := auth.GetClaimsFromContext(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": 500, "data": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"error": nil, "data": claims.UserName})
	})

	return router
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	router := setupAuthRouter()

	req := httptest.NewRequest("GET", "/api/users/alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(401), body["error"])
	assert.Equal(t, "No token provided", body["data"])
}

func TestAuthMiddleware_InvalidTokens(t *testing.T) {
	expired, err := auth.GenerateToken("alice", testSecret, -time.Hour)
	require.NoError(t, err)
	wrongKey, err := auth.GenerateToken("alice", "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong signature", wrongKey},
	}

	router := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/users/alice", nil)
			req.Header.Set(auth.TokenHeader, tt.token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, float64(401), body["error"])
			assert.Equal(t, "invalid token", body["data"])
		})
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := auth.GenerateToken("alice", testSecret, auth.DefaultTokenTTL)
	require.NoError(t, err)

	router := setupAuthRouter()
	req := httptest.NewRequest("GET", "/api/users/alice", nil)
	req.Header.Set("access-token", token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Nil(t, body["error"])
	assert.Equal(t, "alice", body["data"])
}

func TestAuthMiddleware_RejectionMatchesUnauthorizedError(t *testing.T) {
	router := setupAuthRouter()

	req := httptest.NewRequest("GET", "/api/users/alice", nil)
	req.Header.Set(auth.TokenHeader, "not-a-jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	want := apperror.Unauthorized(MsgInvalidToken)
	assert.Equal(t, want.Code, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(want.Code), body["error"])
	assert.Equal(t, want.Message, body["data"])
}
