package handler

import (
	"fmt"
	"net/http"
	"time"

	"accounts-server/internal/admin"
	"accounts-server/internal/models"
	"accounts-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// adminLogin exchanges staff credentials for a signed session token.
func (h *AccountHandler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeWrongCredentials, Message: "Unable to authenticate with provided credentials"})
		return
	}

	session, err := h.accountService.IssueAdminSession(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, adminSessionResponse{SessionToken: session})
}

// userViewConfig fetches the registry ViewConfig driving the admin user
// views. A missing registration is a wiring bug and surfaces as a 500.
func (h *AccountHandler) userViewConfig(c *gin.Context) (admin.ViewConfig, bool) {
	viewCfg, ok := h.registry.Config(admin.EntityUser)
	if !ok {
		zap.L().Error("User entity not registered in admin registry")
		handleServiceError(c, models.ErrInternalServer)
		return admin.ViewConfig{}, false
	}
	return viewCfg, true
}

// adminFieldValue renders a single registry field for a user. The
// password is write-only and renders as a has-password flag.
func adminFieldValue(u *models.User, field string) any {
	switch field {
	case "id":
		return u.ID.String()
	case "email":
		return u.Email
	case "name":
		return u.Name
	case "password":
		return u.HasUsablePassword()
	case "is_active":
		return u.IsActive
	case "is_staff":
		return u.IsStaff
	case "is_superuser":
		return u.IsSuperuser
	case "last_login":
		if u.LastLogin == nil {
			return nil
		}
		return u.LastLogin.UTC().Format(time.RFC3339)
	default:
		return nil
	}
}

// buildAdminUserDetail assembles the change view from the registry's
// fieldsets and read-only list.
func buildAdminUserDetail(u *models.User, viewCfg admin.ViewConfig) adminUserDetail {
	detail := adminUserDetail{
		ID:             u.ID.String(),
		Fieldsets:      make([]adminFieldset, 0, len(viewCfg.Fieldsets)),
		ReadOnlyFields: viewCfg.ReadOnlyFields,
	}
	for _, fs := range viewCfg.Fieldsets {
		fields := make(map[string]any, len(fs.Fields))
		for _, f := range fs.Fields {
			fields[f] = adminFieldValue(u, f)
		}
		detail.Fieldsets = append(detail.Fieldsets, adminFieldset{Label: fs.Label, Fields: fields})
	}
	return detail
}

// adminListUsers returns the list view: the registry's ListDisplay
// columns for every user, ordered by id.
func (h *AccountHandler) adminListUsers(c *gin.Context) {
	viewCfg, ok := h.userViewConfig(c)
	if !ok {
		return
	}

	users, err := h.accountService.AdminListUsers(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	rows := make([]gin.H, 0, len(users))
	for i := range users {
		row := gin.H{"id": users[i].ID.String()}
		for _, col := range viewCfg.ListDisplay {
			row[col] = adminFieldValue(&users[i], col)
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, rows)
}

// adminGetUser returns the change view for a single user, grouped by
// the registry's fieldsets.
func (h *AccountHandler) adminGetUser(c *gin.Context) {
	viewCfg, ok := h.userViewConfig(c)
	if !ok {
		return
	}
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	user, err := h.accountService.AdminGetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildAdminUserDetail(user, viewCfg))
}

// adminCreateUser handles the add view: the password is entered twice
// and must match before the account is created.
func (h *AccountHandler) adminCreateUser(c *gin.Context) {
	viewCfg, ok := h.userViewConfig(c)
	if !ok {
		return
	}

	var req adminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	if req.Password1 != req.Password2 {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeValidation,
			Message: "Passwords do not match",
			Field:   "password2",
		})
		return
	}
	if len(req.Password1) < minPasswordLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeValidation,
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
			Field:   "password1",
		})
		return
	}

	user, err := h.accountService.CreateUser(c.Request.Context(), service.CreateUserParams{
		Email:       req.Email,
		Password:    &req.Password1,
		Name:        req.Name,
		IsActive:    req.IsActive,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()

	c.JSON(http.StatusCreated, buildAdminUserDetail(user, viewCfg))
}

// adminUpdateUser applies the change view: any field may be edited,
// last_login is read-only and not accepted here.
func (h *AccountHandler) adminUpdateUser(c *gin.Context) {
	viewCfg, ok := h.userViewConfig(c)
	if !ok {
		return
	}
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	var req adminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	if req.Password != nil && len(*req.Password) < minPasswordLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeValidation,
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
			Field:   "password",
		})
		return
	}

	err := h.accountService.AdminUpdateUser(c.Request.Context(), userID, service.AdminUserUpdate{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	user, err := h.accountService.AdminGetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildAdminUserDetail(user, viewCfg))
}

// adminDeleteUser removes a user. Superuser-only, enforced by middleware.
func (h *AccountHandler) adminDeleteUser(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	if err := h.accountService.AdminDeleteUser(c.Request.Context(), userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseUserIDParam reads the :user_id path parameter. On a malformed
// UUID it writes a 400 response and returns ok=false.
func parseUserIDParam(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: "Invalid user ID format",
			Field:   "user_id",
		})
		return uuid.Nil, false
	}
	return userID, true
}
