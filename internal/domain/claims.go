package domain

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims represents the JWT claims of an admin-surface session.
type SessionClaims struct {
	UserID      uuid.UUID `json:"user_id"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	jwt.RegisteredClaims
}
