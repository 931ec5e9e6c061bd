package handler

import (
	"net/http"

	"accounts-server/internal/admin"
	"accounts-server/internal/config"
	"accounts-server/internal/models"
	"accounts-server/internal/service"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles HTTP requests for the user and admin surfaces.
type AccountHandler struct {
	accountService service.AccountService
	registry       *admin.Registry
	cfg            *config.Config
}

func NewAccountHandler(accountService service.AccountService, registry *admin.Registry, cfg *config.Config) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		registry:       registry,
		cfg:            cfg,
	}
}

// RegisterRoutes mounts the user and admin surfaces. The rate limiter
// guards the credential-accepting endpoints only.
func (h *AccountHandler) RegisterRoutes(router *gin.Engine, rateLimitMiddleware gin.HandlerFunc) {
	// Requests with a known path but wrong method get 405 regardless of
	// auth state (middleware never runs for them).
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, models.ErrorResponse{
			Code:    models.ErrCodeMethodNotAllowed,
			Message: "Method not allowed",
		})
	})

	users := router.Group("/users")
	{
		users.POST("/create", rateLimitMiddleware, h.createUser)
		users.POST("/token", rateLimitMiddleware, h.createToken)

		me := users.Group("/me")
		me.Use(h.TokenAuthMiddleware())
		{
			me.GET("", h.getMe)
			me.PATCH("", h.updateMe)
		}
	}

	adminGroup := router.Group("/admin")
	{
		adminGroup.POST("/login", rateLimitMiddleware, h.adminLogin)

		adminUsers := adminGroup.Group("/users")
		adminUsers.Use(h.AdminSessionMiddleware())
		{
			adminUsers.GET("", h.adminListUsers)
			adminUsers.POST("", h.adminCreateUser)
			adminUsers.GET("/:user_id", h.adminGetUser)
			adminUsers.PUT("/:user_id", h.adminUpdateUser)
			adminUsers.DELETE("/:user_id", h.RequireSuperuserMiddleware(), h.adminDeleteUser)
		}
	}
}
