package middlewares

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects bodies on write methods unless they declare a JSON
// media type, including "+json" suffixes and charset parameters.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBodyMethod(c.Request.Method) || isJSONContentType(c.GetHeader("Content-Type")) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"error": gin.H{
				"code":      "unsupported_media_type",
				"message":   "Content-Type must be application/json",
				"requestId": c.GetString(CtxRequestID),
			},
		})
	}
}

func hasBodyMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}
