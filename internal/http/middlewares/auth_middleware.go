package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/storefront/internal/actorctx"
	"github.com/geocoder89/storefront/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func abortUnauthorized(c *gin.Context, message string) {
	reqID, _ := c.Get(CtxRequestID)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": reqID,
		},
	})
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid session token")
			return
		}

		claims, err := m.jwt.VerifySessionToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired session token")
			return
		}

		userID := claims.UserID()
		c.Set(ctxUserIDKey, userID)
		c.Set(ctxEmailKey, claims.Email)
		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
			UserID: userID,
			Email:  claims.Email,
		}))

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
