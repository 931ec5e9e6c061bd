package models

// Machine-readable error codes returned alongside HTTP statuses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeWrongCredentials = "WRONG_CREDENTIALS"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeTokenInvalid     = "TOKEN_INVALID"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
