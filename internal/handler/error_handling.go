package handler

import (
	"errors"
	"net/http"

	"accounts-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	if verr, ok := models.AsValidationError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeValidation,
			Message: verr.Message,
			Field:   verr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeDuplicateEmail, Message: "A user with this email already exists", Field: "email"}
	case errors.Is(err, models.ErrInvalidCredentials):
		// Generic message, never reveals which part of the credential was wrong
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeWrongCredentials, Message: "Unable to authenticate with provided credentials"}
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeUserNotFound, Message: "User not found"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenNotFound), errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeTokenInvalid, Message: "Authentication credentials were not provided or are invalid"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.ErrCodeForbidden, Message: "Insufficient permissions"}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
