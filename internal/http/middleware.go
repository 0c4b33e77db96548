package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"corebank-go/internal/database"
	"corebank-go/internal/models"
)

// authRequired resolves the bearer token to a user and stores the identity
// on the request context. Tokens follow the mock scheme issued at register
// and login: mock_token_{UUID}_{random}.
func authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing_token"})
			return
		}

		uuid, ok := tokenUUID(token)
		if !ok {
			c.AbortWithStatusJSON(401, gin.H{"error": "malformed_token"})
			return
		}

		var user models.User
		if err := database.DB.Where("uuid = ?", uuid).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "unknown_token"})
			return
		}

		c.Set("user", &user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// tokenUUID extracts the user UUID from a mock token. The random suffix is
// required but otherwise ignored.
func tokenUUID(token string) (string, bool) {
	rest, ok := strings.CutPrefix(token, "mock_token_")
	if !ok {
		return "", false
	}
	uuid, suffix, ok := strings.Cut(rest, "_")
	if !ok || uuid == "" || suffix == "" {
		return "", false
	}
	return uuid, true
}
