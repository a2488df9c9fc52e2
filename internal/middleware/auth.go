package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"healup/internal/models"
)

// AuthGuard validates the bearer token, injects userId and role into the
// context and, when allowedRoles is non-empty, rejects callers whose role is
// not listed.
func AuthGuard(secret string, allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			log.Println("[AUTH] [ERROR] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Println("[AUTH] [ERROR] invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		userIDValue, ok := claims["userId"].(string)
		if !ok || strings.TrimSpace(userIDValue) == "" {
			log.Println("[AUTH] [ERROR] userId claim missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		userID, err := primitive.ObjectIDFromHex(userIDValue)
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid userId claim")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		roleValue, _ := claims["role"].(string)
		role, err := models.ParseRole(roleValue)
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid role claim:", roleValue)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, allowed := range allowedRoles {
				if role == allowed {
					match = true
					break
				}
			}
			if !match {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "forbidden"})
				return
			}
		}

		c.Set("userId", userID)
		c.Set("role", role)
		c.Next()
	}
}
