package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chatcore/chatcore/internal/auth"
	"github.com/chatcore/chatcore/internal/domain"
)

const userKey = "auth_user"

// AuthMiddleware rejects requests without a valid bearer token and parks
// the user id on the context.
func AuthMiddleware(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.FromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}
		uid, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set(userKey, uid)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.UserID {
	return c.MustGet(userKey).(domain.UserID)
}

func pageOf(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
