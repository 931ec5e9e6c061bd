package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a user account in the system.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"` // Не отдаем хеш пароля
	IsActive     bool       `db:"is_active" json:"isActive"`
	IsStaff      bool       `db:"is_staff" json:"isStaff"`
	IsSuperuser  bool       `db:"is_superuser" json:"isSuperuser"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasUsablePassword reports whether the account can authenticate at all.
// Accounts created without a password store an empty hash and never pass
// a credential check.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// NormalizeEmail lower-cases only the domain portion of an email address.
// The local part is preserved verbatim: "Test2@EXAMPLE.com" becomes
// "Test2@example.com". Strings without an "@" are returned trimmed but
// otherwise untouched.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
