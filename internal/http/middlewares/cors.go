package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods  = "GET,POST,PATCH,DELETE,OPTIONS"
	corsAllowHeaders  = "Authorization,Content-Type,X-Request-Id"
	corsExposeHeaders = "ETag,Retry-After,X-Request-Id"
	corsMaxAge        = "600"
)

// CORSMiddleware echoes allowed origins back with credentials enabled.
// A "*" entry allows any origin. Preflights end here with 204.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAny := false
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			allowAny = true
			continue
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		preflight := ctx.Request.Method == http.MethodOptions

		if origin != "" {
			ctx.Writer.Header().Add("Vary", "Origin")

			if _, ok := allowed[origin]; ok || allowAny {
				h := ctx.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

				if preflight {
					h.Set("Access-Control-Allow-Methods", corsAllowMethods)
					h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					h.Set("Access-Control-Max-Age", corsMaxAge)
				}
			}
		}

		if preflight {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
