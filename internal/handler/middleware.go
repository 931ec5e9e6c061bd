package handler

import (
	"strings"

	"accounts-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextUserKey = "current_user"

// TokenAuthMiddleware authenticates requests carrying an opaque bearer
// token and stores the resolved user in the Gin context.
func (h *AccountHandler) TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			tokenVerificationsTotal.WithLabelValues("bearer", "failure").Inc()
			handleServiceError(c, models.ErrUnauthorized)
			return
		}

		user, err := h.accountService.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			zap.L().Warn("Bearer token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("bearer", "failure").Inc()
			handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("bearer", "success").Inc()
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// AdminSessionMiddleware authenticates requests carrying an admin
// session token and ensures the caller is still staff.
func (h *AccountHandler) AdminSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			tokenVerificationsTotal.WithLabelValues("admin-session", "failure").Inc()
			handleServiceError(c, models.ErrUnauthorized)
			return
		}

		user, err := h.accountService.VerifyAdminSession(c.Request.Context(), tokenString)
		if err != nil {
			zap.L().Warn("Admin session verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("admin-session", "failure").Inc()
			handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("admin-session", "success").Inc()
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// RequireSuperuserMiddleware gates destructive admin actions. Must run
// after AdminSessionMiddleware.
func (h *AccountHandler) RequireSuperuserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok || !user.IsSuperuser {
			handleServiceError(c, models.ErrForbidden)
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <key>"
// header. "Token <key>" is accepted as an alias.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	scheme := strings.ToLower(parts[0])
	if scheme != "bearer" && scheme != "token" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func currentUser(c *gin.Context) (*models.User, bool) {
	raw, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := raw.(*models.User)
	return user, ok
}
