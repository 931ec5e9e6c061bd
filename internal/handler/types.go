package handler

// --- Константы для валидации ---
// Пароли ограничены только снизу; bcrypt-усечение нейтрализовано
// HMAC-прехешем.
const minPasswordLength = 5

type createUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// userResponse is the only user shape the self-service API ever returns.
// The password is write-only and never appears here.
type userResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type updateMeRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// --- Admin surface ---

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type adminSessionResponse struct {
	SessionToken string `json:"session_token"`
}

// adminFieldset is one labelled group of rendered field values on the
// detail view, per the registry's Fieldsets.
type adminFieldset struct {
	Label  string         `json:"label"`
	Fields map[string]any `json:"fields"`
}

// adminUserDetail is the change-view payload. Its shape is driven by
// the registry ViewConfig; the password field renders as a set/unset
// flag, never the hash.
type adminUserDetail struct {
	ID             string          `json:"id"`
	Fieldsets      []adminFieldset `json:"fieldsets"`
	ReadOnlyFields []string        `json:"read_only_fields"`
}

type adminCreateUserRequest struct {
	Email       string `json:"email" binding:"required"`
	Password1   string `json:"password1" binding:"required"`
	Password2   string `json:"password2" binding:"required"`
	Name        string `json:"name"`
	IsActive    *bool  `json:"is_active,omitempty"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

type adminUpdateUserRequest struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	Name        *string `json:"name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsStaff     *bool   `json:"is_staff,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
}
