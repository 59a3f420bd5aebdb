// Package user defines the account model for registration and authentication.
package user

import (
	"errors"
	"net/mail"
	"regexp"
	"time"

	"github.com/Strob0t/StackForge/internal/domain"
)

// User is a local account, optionally linked to a remote platform account.
// The remote link is set once and stays empty if remote creation failed.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name"`
	PasswordHash    string    `json:"-"` // never serialized
	RemoteAccountID int64     `json:"remote_account_id,omitempty"`
	RemoteUsername  string    `json:"remote_username,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasRemote reports whether the user is linked to a remote account.
func (u *User) HasRemote() bool {
	return u.RemoteAccountID > 0
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{2,49}$`)

// RegisterRequest is the input for registering a new user.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the RegisterRequest has all required fields.
func (r *RegisterRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if !usernamePattern.MatchString(r.Username) {
		return errors.New("username must be 3-50 characters of letters, digits, '_', '.' or '-'")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	return validatePassword(r.Password)
}

// LoginRequest authenticates by username or email.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Login == "" {
		return errors.New("login is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// UpdateProfileRequest changes mutable profile fields. Empty fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Validate checks the optional fields of an UpdateProfileRequest.
func (r *UpdateProfileRequest) Validate() error {
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return errors.New("invalid email format")
		}
	}
	if len(r.DisplayName) > 100 {
		return errors.New("display name exceeds 100 characters")
	}
	return nil
}

// ChangePasswordRequest replaces the password after verifying the current one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"` //nolint:gosec // request field, not a hardcoded secret
	NewPassword     string `json:"new_password"`     //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the ChangePasswordRequest has all required fields.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return errors.New("current password is required")
	}
	return validatePassword(r.NewPassword)
}

func validatePassword(p string) error {
	if p == "" {
		return errors.New("password is required")
	}
	if len(p) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(p) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int    `json:"expires_in"`   // seconds until access token expires
	User        User   `json:"user"`
}

// TokenClaims is the identity carried by a verified access token.
type TokenClaims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// RegisterResult carries the new user, an access token and any non-fatal
// remote warnings.
type RegisterResult struct {
	AccessToken string           `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int              `json:"expires_in"`
	User        User             `json:"user"`
	Warnings    []domain.Warning `json:"warnings,omitempty"`
}
