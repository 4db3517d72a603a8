package middleware

import (
	"errors"
	"net/http"
	"strings"

	"localcity/database"
	userRepo "localcity/database/repository/user"
	"localcity/models"
	"localcity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	adminIDKey     = "adminID"
	adminClaimsKey = "adminClaims"
)

// bearerToken reads the token from the Authorization header. EventSource
// cannot set headers, so the access_token query parameter is accepted too.
func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("access_token")
}

// JWTAuthAdminMiddleware admits requests carrying a valid admin token. When
// users is set, the account must also still be an active admin.
func JWTAuthAdminMiddleware(users userRepo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := utils.ParseAdminToken(tokenString)
		if err != nil {
			zap.L().Debug("rejected admin token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized admin access"})
			return
		}
		if claims.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}

		if users != nil {
			u, err := users.GetByID(c.Request.Context(), claims.UserID)
			switch {
			case errors.Is(err, database.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized admin access"})
				return
			case err != nil:
				zap.L().Error("admin lookup failed", zap.String("userID", claims.UserID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to verify admin account"})
				return
			case u.Role != models.RoleAdmin || u.Status != models.UserActive:
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access revoked"})
				return
			}
		}

		c.Set(adminIDKey, claims.UserID)
		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

// AdminID returns the authenticated admin's user ID.
func AdminID(c *gin.Context) string {
	return c.GetString(adminIDKey)
}
