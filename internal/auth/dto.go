package auth

import (
	"github.com/reelkeep/reelkeep-backend/internal/users"
)

// RegisterRequest captures the payload for creating a remote identity.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult holds the freshly issued session plus the caller's profile
// snapshot. The CSRF token rides along once so the UI can embed it.
type LoginResult struct {
	SessionID string         `json:"-"`
	CSRFToken string         `json:"csrf_token"`
	User      *users.UserDTO `json:"user"`
}

// UpdateEmailRequest changes the account email.
type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest changes the account password.
type UpdatePasswordRequest struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}
