package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OptionalUser trusts the X-User-Id header as the firebase uid.
// - If X-User-Id is missing, it falls back to fallbackUID.
// - With an empty fallbackUID a missing header is rejected with 401.
// - Use this ONLY for development/testing.
func OptionalUser(fallbackUID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = fallbackUID
		}
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing X-User-Id header"})
			return
		}

		c.Set(CtxFirebaseUID, uid)
		c.Next()
	}
}
