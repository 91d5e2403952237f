package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by FirebaseAuthMiddleware or OptionalUser
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// RequestOwner is the owner of the current request. It is signed out when
// no middleware resolved an identity.
func RequestOwner(c *gin.Context) StaticOwner {
	return StaticOwner(UserFirebaseUID(c))
}
