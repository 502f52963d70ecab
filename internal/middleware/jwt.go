package middleware

import (
	"errors"

	"user_api/internal/apperror"
	"user_api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	MsgNoToken      = "No token provided"
	MsgInvalidToken = "invalid token"
)

// AuthMiddleware verifies the access-token header and attaches the claims.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader(auth.TokenHeader)
		if tokenString == "" {
			abortUnauthorized(c, MsgNoToken)
			return
		}

		claims, err := auth.ValidateToken(tokenString, secret)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				logrus.WithField("path", c.FullPath()).Info("Rejected expired token")
			}
			abortUnauthorized(c, MsgInvalidToken)
			return
		}

		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	appErr := apperror.Unauthorized(msg)
	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"error": appErr.Code,
		"data":  appErr.Message,
	})
}
