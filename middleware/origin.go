package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Origin is the cross-origin policy for the websocket handshake and the
// health endpoint: a fixed origin allowlist, GET/POST only, credentials
// permitted. Disallowed origins get no CORS headers at all, which makes the
// browser refuse the response.
func Origin(allowed []string) gin.HandlerFunc {
	check := OriginChecker(allowed)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && check(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// OriginChecker builds the allowlist predicate; also handed to the
// websocket upgrader's CheckOrigin.
func OriginChecker(allowed []string) func(string) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
			continue
		}
		set[o] = struct{}{}
	}
	return func(origin string) bool {
		if allowAll {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
