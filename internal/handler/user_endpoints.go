package handler

import (
	"fmt"
	"net/http"

	"accounts-server/internal/models"
	"accounts-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// createUser handles registration. No authentication required.
func (h *AccountHandler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	if len(req.Password) < minPasswordLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeValidation,
			Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength),
			Field:   "password",
		})
		return
	}

	user, err := h.accountService.CreateUser(c.Request.Context(), service.CreateUserParams{
		Email:    req.Email,
		Password: &req.Password,
		Name:     req.Name,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()

	c.JSON(http.StatusCreated, userResponse{Email: user.Email, Name: user.Name})
}

// createToken validates credentials and returns the caller's bearer token.
func (h *AccountHandler) createToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Missing/empty fields collapse into the same generic 400 as a
		// credential mismatch, nothing is enumerated.
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeWrongCredentials, Message: "Unable to authenticate with provided credentials"})
		return
	}

	_, token, err := h.accountService.IssueToken(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	tokenIssuesTotal.Inc()

	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// getMe returns the authenticated caller's own profile.
func (h *AccountHandler) getMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		zap.L().Error("Current user missing in context during /users/me request")
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, userResponse{Email: user.Email, Name: user.Name})
}

// updateMe applies a partial update to the caller's own profile.
func (h *AccountHandler) updateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		zap.L().Error("Current user missing in context during /users/me update")
		handleServiceError(c, models.ErrUnauthorized)
		return
	}

	var req updateMeRequest
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

	updated, err := h.accountService.UpdateProfile(c.Request.Context(), user.ID, service.ProfileUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse{Email: updated.Email, Name: updated.Name})
}
